package audit

import (
	"encoding/json"
	"log"
	"time"
)

type ContractEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	EventType  string    `json:"event_type"`
	ContractID string    `json:"contract_id"`
	Party      string    `json:"party"`
	Status     string    `json:"status"`
	Details    any       `json:"details"`
}

type AuditLogger struct{}

func NewAuditLogger() *AuditLogger {
	return &AuditLogger{}
}

func (a *AuditLogger) LogOperation(op, contractID, party string, details map[string]string) {
	event := ContractEvent{
		Timestamp:  time.Now(),
		EventType:  op,
		ContractID: contractID,
		Party:      party,
		Status:     "SUCCESS",
		Details:    details,
	}
	a.log(event)
}

func (a *AuditLogger) LogPayment(contractID, party string, rent, penalty, total int64) {
	event := ContractEvent{
		Timestamp:  time.Now(),
		EventType:  "PAY_RENT",
		ContractID: contractID,
		Party:      party,
		Status:     "SUCCESS",
		Details: map[string]int64{
			"rent":               rent,
			"penalty":            penalty,
			"total_paid_to_date": total,
		},
	}
	a.log(event)
}

func (a *AuditLogger) LogError(op, contractID, party string, err error) {
	event := ContractEvent{
		Timestamp:  time.Now(),
		EventType:  op,
		ContractID: contractID,
		Party:      party,
		Status:     "FAILED",
		Details:    map[string]string{"error": err.Error()},
	}
	a.log(event)
}

func (a *AuditLogger) log(event ContractEvent) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
