// Package mailbox provides concrete realizations of the cycle-scoped
// mailbox: an in-process slice-backed transport for tests and
// embedders, and a Redis Streams-backed transport for the runnable
// end-to-end path.
package mailbox

import "github.com/holla2040/steamboiler/internal/classify"

// Memory is an in-process, slice-backed mailbox. It implements
// controller.Inbound and controller.Outbound without any serialization,
// for unit tests and single-process embedders.
type Memory struct {
	inbound []classify.Message
	Sent    []classify.Message
}

// NewMemory creates a Memory mailbox primed with one cycle's inbound
// batch.
func NewMemory(inbound []classify.Message) *Memory {
	return &Memory{inbound: inbound}
}

// Size implements controller.Inbound.
func (m *Memory) Size() int { return len(m.inbound) }

// Read implements controller.Inbound.
func (m *Memory) Read(i int) classify.Message { return m.inbound[i] }

// Send implements controller.Outbound: it appends to Sent, the cycle's
// observable command batch.
func (m *Memory) Send(msg classify.Message) {
	m.Sent = append(m.Sent, msg)
}

// Next clears Sent and loads the following cycle's inbound batch, ready
// for another Controller.Clock call.
func (m *Memory) Next(inbound []classify.Message) {
	m.inbound = inbound
	m.Sent = nil
}
