// Package queue scores and buckets tickets for work-queue display. Scoring is
// pure and stateless: safe to call concurrently and as often as the UI needs.
package queue

import (
	"sort"
	"time"

	"github.com/supportdesk/ticketflow/internal/domain"
)

// Section is one of the four display buckets.
type Section string

const (
	SectionUrgent          Section = "urgent"
	SectionToProcess       Section = "toProcess"
	SectionWaitingCustomer Section = "waitingCustomer"
	SectionResolved        Section = "resolved"
)

// Signal weights. SLA pressure dominates, then priority, then status, then age.
const (
	slaWeight      = 2.0
	priorityWeight = 1.5
	statusWeight   = 1.0
	ageWeight      = 0.5
	ageCapHours    = 100.0
)

var priorityScores = map[domain.TicketPriority]float64{
	domain.TicketPriorityUrgent: 100,
	domain.TicketPriorityHigh:   75,
	domain.TicketPriorityMedium: 50,
	domain.TicketPriorityLow:    25,
}

// statusWeights order statuses from most to least urgent; the status signal is
// 100 minus the weight.
var statusWeights = map[domain.TicketStatus]float64{
	domain.TicketStatusEscalated:       0,
	domain.TicketStatusReopened:        10,
	domain.TicketStatusOpen:            20,
	domain.TicketStatusInProgress:      40,
	domain.TicketStatusWaitingCustomer: 60,
	domain.TicketStatusResolved:        80,
	domain.TicketStatusClosed:          100,
}

// Score computes the urgency score for a ticket at the given instant.
func Score(ticket *domain.Ticket, now time.Time) float64 {
	score := slaWeight * slaScore(ticket, now)
	score += priorityWeight * priorityScores[ticket.Priority]
	score += statusWeight * (100 - statusWeights[ticket.Status])
	score += ageWeight * ageScore(ticket, now)
	return score
}

// slaScore maps SLA pressure onto a step function: 200 breached or past due,
// then 150/100/50 as the deadline approaches, 0 with headroom or no deadline.
func slaScore(ticket *domain.Ticket, now time.Time) float64 {
	if ticket.SLABreached {
		return 200
	}
	if ticket.SLADeadline == nil {
		return 0
	}
	remaining := ticket.SLADeadline.Sub(now)
	switch {
	case remaining <= 0:
		return 200
	case remaining <= time.Hour:
		return 150
	case remaining <= 4*time.Hour:
		return 100
	case remaining <= 8*time.Hour:
		return 50
	default:
		return 0
	}
}

func ageScore(ticket *domain.Ticket, now time.Time) float64 {
	hours := now.Sub(ticket.CreatedAt).Hours()
	if hours < 0 {
		return 0
	}
	if hours > ageCapHours {
		return ageCapHours
	}
	return hours
}

// SectionFor assigns a ticket to its display bucket. Breach or near-breach
// pressure wins over everything except the waiting/resolved statuses' own
// buckets; an URGENT ticket in an open-like status is also urgent.
func SectionFor(ticket *domain.Ticket, now time.Time) Section {
	switch ticket.Status {
	case domain.TicketStatusWaitingCustomer:
		return SectionWaitingCustomer
	case domain.TicketStatusResolved, domain.TicketStatusClosed:
		return SectionResolved
	}
	if slaScore(ticket, now) >= 150 {
		return SectionUrgent
	}
	if ticket.Priority == domain.TicketPriorityUrgent && isOpenLike(ticket.Status) {
		return SectionUrgent
	}
	return SectionToProcess
}

func isOpenLike(status domain.TicketStatus) bool {
	return status == domain.TicketStatusOpen ||
		status == domain.TicketStatusEscalated ||
		status == domain.TicketStatusReopened
}

// Sort orders tickets by descending score. The input slice is not modified.
func Sort(tickets []domain.Ticket, now time.Time) []domain.Ticket {
	sorted := make([]domain.Ticket, len(tickets))
	copy(sorted, tickets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return Score(&sorted[i], now) > Score(&sorted[j], now)
	})
	return sorted
}

// Bucketed groups tickets into sections, each sorted by descending score.
func Bucketed(tickets []domain.Ticket, now time.Time) map[Section][]domain.Ticket {
	buckets := map[Section][]domain.Ticket{}
	for _, ticket := range tickets {
		section := SectionFor(&ticket, now)
		buckets[section] = append(buckets[section], ticket)
	}
	for section, bucket := range buckets {
		buckets[section] = Sort(bucket, now)
	}
	return buckets
}
