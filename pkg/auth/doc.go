// Package auth checks bearer API keys on incoming OpenAI-compatible
// requests.
//
// Keys are hashed with SHA-256 when the authenticator is built and
// compared in constant time. The check is exposed as HTTP middleware so
// the local mock backend can reject requests the way the hosted Morpheus
// and OpenAI endpoints do.
package auth
