package engine

import "sync/atomic"

// Metrics holds atomic counters describing an Engine's wire activity. Safe
// for concurrent use; can back a prometheus CounterFunc/GaugeFunc.
type Metrics struct {
	// SendCount is the number of send attempts that completed with an
	// ACK or STX response.
	SendCount atomic.Uint64
	// RetryCount is the total number of send retries (NAK or timeout).
	RetryCount atomic.Uint64
	// SendFailCount is the number of sends that exhausted all retries.
	SendFailCount atomic.Uint64

	// PartRecvCount is the number of framed parts received from the
	// terminal that passed checksum verification and were ACK'd.
	PartRecvCount atomic.Uint64
	// PartNakCount is the number of received parts that failed checksum
	// verification and were NAK'd.
	PartNakCount atomic.Uint64
	// PayloadRecvCount is the number of complete logical payloads
	// reassembled from one or more parts.
	PayloadRecvCount atomic.Uint64

	// CommErrorCount is the number of I/O errors observed by the reader
	// loop or sender.
	CommErrorCount atomic.Uint64
}

func (m *Metrics) incSendCount()     { m.SendCount.Add(1) }
func (m *Metrics) incRetryCount()    { m.RetryCount.Add(1) }
func (m *Metrics) incSendFailCount() { m.SendFailCount.Add(1) }

func (m *Metrics) incPartRecvCount()    { m.PartRecvCount.Add(1) }
func (m *Metrics) incPartNakCount()     { m.PartNakCount.Add(1) }
func (m *Metrics) incPayloadRecvCount() { m.PayloadRecvCount.Add(1) }

func (m *Metrics) incCommErrorCount() { m.CommErrorCount.Add(1) }
