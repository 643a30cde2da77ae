package pipeline

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"testing"
	"time"
)

func TestMapCollect(t *testing.T) {
	errOdd := errors.New("odd")
	tests := []struct {
		name    string
		in      []int
		fn      func(context.Context, int) (string, error)
		want    []string
		wantErr error
	}{
		{
			name: "transforms in order",
			in:   []int{1, 2, 3},
			fn:   func(_ context.Context, n int) (string, error) { return strconv.Itoa(n * 10), nil },
			want: []string{"10", "20", "30"},
		},
		{
			name: "empty source",
			in:   nil,
			fn:   func(_ context.Context, n int) (string, error) { return "", nil },
		},
		{
			name: "error stops the stream",
			in:   []int{2, 3, 4},
			fn: func(_ context.Context, n int) (string, error) {
				if n%2 == 1 {
					return "", errOdd
				}
				return strconv.Itoa(n), nil
			},
			want:    []string{"2"},
			wantErr: errOdd,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Collect(context.Background(), Map(FromSlice(tt.in), tt.fn))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDrainSinkError(t *testing.T) {
	errFull := errors.New("full")
	var seen []int
	err := Drain(FromSlice([]int{1, 2, 3}), func(_ context.Context, n int) error {
		seen = append(seen, n)
		if n == 2 {
			return errFull
		}
		return nil
	}).Run(context.Background())
	if !errors.Is(err, errFull) {
		t.Fatalf("err = %v, want %v", err, errFull)
	}
	if !reflect.DeepEqual(seen, []int{1, 2}) {
		t.Errorf("sink saw %v", seen)
	}
}

func TestFromChan(t *testing.T) {
	ch := make(chan string, 2)
	ch <- "a"
	ch <- "b"
	close(ch)
	got, err := Collect(context.Background(), FromChan(ch))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("got %v", got)
	}
}

func TestFromChanCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Collect(ctx, FromChan(make(chan int)))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestTumblingWindow(t *testing.T) {
	t.Run("flushes the partial window when the source ends", func(t *testing.T) {
		got, err := Collect(context.Background(), TumblingWindow(FromSlice([]int{1, 2, 3}), time.Hour))
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, [][]int{{1, 2, 3}}) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("splits on the window boundary", func(t *testing.T) {
		ch := make(chan int)
		go func() {
			defer close(ch)
			ch <- 1
			ch <- 2
			time.Sleep(150 * time.Millisecond)
			ch <- 3
		}()
		got, err := Collect(context.Background(), TumblingWindow(FromChan(ch), 50*time.Millisecond))
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, [][]int{{1, 2}, {3}}) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("no values, no windows", func(t *testing.T) {
		got, err := Collect(context.Background(), TumblingWindow(FromSlice[int](nil), 10*time.Millisecond))
		if err != nil || len(got) != 0 {
			t.Fatalf("got %v, %v", got, err)
		}
	})
}
