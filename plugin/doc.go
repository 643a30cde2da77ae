// Package plugin runs the ordered transformation stages applied to every
// conversational turn.
//
// A Pipeline is built per session from the enabled plugin entries of the
// agent configuration. Stages run strictly in list order and share one
// TurnContext. A stage that returns an error or panics is skipped: the
// message it received passes on unchanged.
//
// A stage may return a terminal result, such as a rejection message for
// disallowed content. Later stages still run and observe the turn; a later
// terminal result replaces the earlier one, while later non-terminal rewrites
// are discarded.
package plugin
