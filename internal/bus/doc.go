// Package bus implements the tokens-updated broadcast channel. The memory
// bus fans out within one process; the Redis bus extends the same signal to
// sibling processes sharing a credential file.
package bus
