// Package auth issues access tokens for LiveKit rooms.
//
// A token is an HS256 JWT signed with the LiveKit API secret: the issuer is
// the API key, the subject is the participant identity and the "video"
// claim grants joining a single room.
//
//	livekit:
//	  url: wss://voice.example.com
//	  api_key: APIxxxx
//	  api_secret: secret
//	  token_ttl: 6h
//
// Signing and verification go through jwt.Signer.
package auth
