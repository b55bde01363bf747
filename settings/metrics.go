package settings

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var commits = promauto.NewCounter(prometheus.CounterOpts{
	Name: "settings_commits_total",
	Help: "Number of committed settings transactions",
})

var commitFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "settings_commit_failures_total",
	Help: "Number of settings transactions that failed or were aborted",
})

var changesApplied = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "settings_changes_total",
	Help: "Number of committed setting changes",
}, []string{"op"})

var historyFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "settings_history_failures_total",
	Help: "Number of committed transactions that could not be written to the history log",
})
