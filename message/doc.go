// Package message implements the fixed-layout wire records exchanged with
// the payment terminal: the 80-byte transaction request, the short control
// messages, and the decoders for every asynchronous terminal response.
package message
