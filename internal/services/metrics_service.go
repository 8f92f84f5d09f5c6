package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 摄取与问答的运行指标
var (
	metricTasksCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docanalyzer_ingest_tasks_completed_total",
		Help: "Number of ingestion tasks that completed successfully.",
	})
	metricTasksSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docanalyzer_ingest_tasks_skipped_total",
		Help: "Number of ingestion tasks skipped because the document already existed.",
	})
	metricTasksFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docanalyzer_ingest_tasks_failed_total",
		Help: "Number of failed ingestion task executions by error code.",
	}, []string{"code"})
	metricChunksPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docanalyzer_chunks_persisted_total",
		Help: "Number of document chunks persisted.",
	})
	metricQuestions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docanalyzer_questions_total",
		Help: "Number of questions processed by outcome (answered, no_context, error).",
	}, []string{"outcome"})
)
