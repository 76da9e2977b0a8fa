package output

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"flit.hoyle.net/internal/logger"
	"flit.hoyle.net/pkg/event"
)

// PSQL inserts records into a PostgreSQL table: one row per record with the
// routing tag, the event timestamp and the field map as JSON.
type PSQL struct {
	baseOutput
	dbConn          *sql.DB
	table           string
	idleConnections prometheus.Gauge
	maxConnections  prometheus.Gauge
	usedConnections prometheus.Gauge
}

func NewPSQL(name, connStr string, opts map[string]string) (p *PSQL, err error) {
	outputType := "psql"
	p = &PSQL{
		baseOutput: baseOutput{
			name:       name,
			outputType: outputType,
		},
		table: "flit.records",
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		logger.Error("Failed to open connection", slog.String("name", name), slog.Any("error", err))
		return nil, err
	}
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", slog.String("name", name), slog.Any("error", err))
		db.Close()
		return nil, err
	}

	for opt, val := range opts {
		switch opt {
		case "table":
			p.table = val
		case "max_conn":
			maxconn, _ := strconv.Atoi(val)
			db.SetMaxOpenConns(maxconn)
		case "max_idle":
			maxconn, _ := strconv.Atoi(val)
			db.SetMaxIdleConns(maxconn)
		case "max_conn_time":
			dur, _ := time.ParseDuration(val)
			db.SetConnMaxLifetime(dur)
		case "max_idle_time":
			dur, _ := time.ParseDuration(val)
			db.SetConnMaxIdleTime(dur)
		}
	}

	p.dbConn = db
	p.initOutputMetrics()

	p.idleConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "flit_psql_connection_stats",
		Help:        "Connection stats related to PostgreSQL database",
		ConstLabels: prometheus.Labels{"output_name": name, "output_type": outputType, "conn": "idle"},
	})
	p.maxConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "flit_psql_connection_stats",
		Help:        "Connection stats related to PostgreSQL database",
		ConstLabels: prometheus.Labels{"output_name": name, "output_type": outputType, "conn": "max"},
	})
	p.usedConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "flit_psql_connection_stats",
		Help:        "Connection stats related to PostgreSQL database",
		ConstLabels: prometheus.Labels{"output_name": name, "output_type": outputType, "conn": "used"},
	})

	p.updateStats()

	return
}

func (p *PSQL) Cleanup() {
	p.dbConn.Close()
	p.baseOutput.Cleanup()
}

func unixToStamp(sec, nsec uint32) string {
	return time.Unix(int64(sec), int64(nsec)).UTC().Format("2006-01-02 15:04:05.000000000")
}

func (p *PSQL) Flush(tag string, recs []event.Record) bool {
	return genericFlush(&p.baseOutput, tag, recs, p.insertRecords)
}

func (p *PSQL) insertRecords(tag string, recs []event.Record) error {
	base := "INSERT INTO " + p.table + " (tag, event_time, fields) VALUES ($1, $2, $3)"

	p.updateStats()

	txn, err := p.dbConn.Begin()
	if err != nil {
		logger.Error("Failed to begin transaction", slog.String("name", p.name), slog.Any("error", err))
		return err
	}
	stmt, err := txn.Prepare(base)
	if err != nil {
		txn.Rollback()
		logger.Error("Failed to prepare statement", slog.String("name", p.name), slog.Any("error", err))
		return err
	}
	defer stmt.Close()

	for _, r := range recs {
		fields, err := json.Marshal(r.Fields)
		if err != nil {
			txn.Rollback()
			return err
		}
		stamp := unixToStamp(r.Time.Seconds(), r.Time.Nanos())
		if _, err := stmt.Exec(tag, stamp, fields); err != nil {
			txn.Rollback()
			logger.Error("Failed to execute statement", slog.String("name", p.name), slog.Any("error", err))
			return err
		}
	}

	if err := txn.Commit(); err != nil {
		logger.Error("Failed to commit transaction", slog.String("name", p.name), slog.Any("error", err))
		return err
	}

	p.updateStats()
	return nil
}

func (p *PSQL) updateStats() {
	stats := p.dbConn.Stats()
	p.idleConnections.Set(float64(stats.Idle))
	p.usedConnections.Set(float64(stats.InUse))
	p.maxConnections.Set(float64(stats.MaxOpenConnections))
}
