package bliss

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bliss_ai_requests_total",
		Help: "AI writing assistant calls by operation and outcome.",
	}, []string{"op", "outcome"})

	articlesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bliss_articles_published_total",
		Help: "Articles that went live from the admin console.",
	})
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
