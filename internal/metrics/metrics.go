// Package metrics registers the Prometheus collectors for the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "anon_inbox_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anon_inbox_registrations_total",
		Help: "Sign-up attempts by outcome.",
	}, []string{"outcome"})

	Verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anon_inbox_verifications_total",
		Help: "Verification code checks by outcome.",
	}, []string{"outcome"})

	Messages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anon_inbox_messages_total",
		Help: "Anonymous message submissions by outcome.",
	}, []string{"outcome"})

	VerificationEmails = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anon_inbox_verification_emails_total",
		Help: "Verification emails by delivery result.",
	}, []string{"result"})
)

// Outcome labels
const (
	OutcomeCreated      = "created"
	OutcomeReregistered = "reregistered"
	OutcomeRejected     = "rejected"
	OutcomeVerified     = "verified"
	OutcomeExpired      = "expired"
	OutcomeIncorrect    = "incorrect"
	OutcomeDelivered    = "delivered"
	OutcomeNotAccepting = "not_accepting"
	OutcomeSent         = "sent"
	OutcomeFailed       = "failed"
)
