package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civicsync",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Cache reads that returned a valid entry",
	}, []string{"tier"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civicsync",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Cache reads that missed (absent, expired, or wrong schema)",
	}, []string{"tier"})

	CacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "civicsync",
		Subsystem: "cache",
		Name:      "evictions_total",
		Help:      "Entries removed by expiry/version eviction scans",
	})

	CacheWriteRejects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "civicsync",
		Subsystem: "cache",
		Name:      "write_rejects_total",
		Help:      "Cache writes rejected after quota eviction retry",
	})

	OfflineQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "civicsync",
		Subsystem: "cache",
		Name:      "offline_queue_depth",
		Help:      "Offline actions currently awaiting replay",
	})

	VotesSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civicsync",
		Subsystem: "votes",
		Name:      "submitted_total",
		Help:      "Vote mutations sent to the remote service",
	}, []string{"result"})

	VoteRefetches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "civicsync",
		Subsystem: "votes",
		Name:      "refetches_total",
		Help:      "Authoritative refetches triggered by push events or errors",
	})

	ReplayActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civicsync",
		Subsystem: "replay",
		Name:      "actions_total",
		Help:      "Offline actions replayed, by outcome",
	}, []string{"outcome"})

	ReplayRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "civicsync",
		Subsystem: "replay",
		Name:      "runs_total",
		Help:      "Replay passes started by connectivity or timer triggers",
	})
)
