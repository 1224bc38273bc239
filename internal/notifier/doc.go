// Package notifier emails a listing to every configured recipient.
//
// Each recipient gets its own message and its own delivery attempt; a failure for one
// recipient is recorded and the remaining recipients are still tried.
package notifier
