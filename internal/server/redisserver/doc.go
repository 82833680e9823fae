// Package redisserver serves the Pedis store over the Redis protocol.
//
// Each accepted connection runs in its own goroutine. Requests are read
// with the resp package, dispatched through CommandHandler's command table
// and answered on the same connection. Decoding failures close the
// connection; store failures are reported as error replies and the
// connection stays open.
package redisserver
