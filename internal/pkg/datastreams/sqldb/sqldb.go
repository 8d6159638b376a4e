package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/ohowland/gridzone/internal/pkg/config"
	"github.com/ohowland/gridzone/internal/pkg/msg"
	"github.com/ohowland/gridzone/internal/pkg/pipeline"
)

const writeTimeout = 5 * time.Second

type Handler struct {
	inbox  <-chan msg.Msg
	pid    uuid.UUID
	config config.SQL
}

func New(cfg config.SQL, system msg.Publisher) (Handler, error) {
	pid, _ := uuid.NewUUID()

	chReport, err := system.Subscribe(pid, msg.Report)
	if err != nil {
		return Handler{}, err
	}
	chTopology, err := system.Subscribe(pid, msg.Topology)
	if err != nil {
		return Handler{}, err
	}

	return Handler{
		inbox:  msg.Merge(chReport, chTopology),
		pid:    pid,
		config: cfg,
	}, nil
}

func (h Handler) PID() uuid.UUID {
	return h.pid
}

// DSN returns the data source name for the configured driver.
func (h Handler) DSN() string {
	c := h.config
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Server, c.Port, quoteValue(c.Username), quoteValue(c.Password), quoteValue(c.Database))
	}

	mc := mysql.NewConfig()
	mc.User = c.Username
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = c.Server + ":" + strconv.Itoa(c.Port)
	mc.DBName = c.Database
	return mc.FormatDSN()
}

// quoteValue quotes a postgres connection string value.
func quoteValue(v string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
}

func (h Handler) DB() (*sql.DB, error) {
	return sql.Open(h.config.Driver, h.DSN())
}

// bind rewrites ? placeholders for drivers that number them.
func bind(driver, stmt string) string {
	if driver != "postgres" {
		return stmt
	}
	var b strings.Builder
	n := 0
	for _, r := range stmt {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var tables = []string{
	`CREATE TABLE IF NOT EXISTS zone_report (
		run_pid VARCHAR(36) NOT NULL,
		zone INT NOT NULL,
		name VARCHAR(32) NOT NULL,
		total_nodes INT NOT NULL,
		fault_nodes INT NOT NULL,
		fault_percent DOUBLE PRECISION NOT NULL,
		blackout_time DOUBLE PRECISION,
		recovery_time DOUBLE PRECISION,
		resilience_score DOUBLE PRECISION,
		PRIMARY KEY (run_pid, zone))`,
	`CREATE TABLE IF NOT EXISTS bus_zone (
		run_pid VARCHAR(36) NOT NULL,
		label VARCHAR(64) NOT NULL,
		bus_index INT NOT NULL,
		zone INT NOT NULL,
		x DOUBLE PRECISION NOT NULL,
		y DOUBLE PRECISION NOT NULL,
		fallback BOOLEAN NOT NULL,
		PRIMARY KEY (run_pid, label))`,
}

func initDBTables(ctx context.Context, db *sql.DB) error {
	for _, stmt := range tables {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

type row struct {
	stmt string
	args []interface{}
}

const (
	insertZone = `INSERT INTO zone_report (run_pid, zone, name, total_nodes, fault_nodes, fault_percent, blackout_time, recovery_time, resilience_score) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	insertBus  = `INSERT INTO bus_zone (run_pid, label, bus_index, zone, x, y, fallback) VALUES (?, ?, ?, ?, ?, ?, ?)`
)

// reportRows returns one zone_report row per zone. Zones without a
// resilience score leave the timing columns NULL.
func reportRows(r pipeline.ZoneReport) []row {
	rows := make([]row, 0, len(r.Zones))
	for _, s := range r.Zones {
		var blackout, recovery, score sql.NullFloat64
		for _, zs := range r.Resilience.Zones {
			if zs.Zone == s.Zone {
				blackout = sql.NullFloat64{Float64: zs.Blackout, Valid: true}
				recovery = sql.NullFloat64{Float64: zs.Recovery, Valid: true}
				score = sql.NullFloat64{Float64: zs.Score, Valid: true}
			}
		}
		rows = append(rows, row{insertZone, []interface{}{
			r.PID.String(), s.Zone, s.Name, s.TotalNodes, s.FaultNodes, s.FaultPercent,
			blackout, recovery, score,
		}})
	}
	return rows
}

func topologyRows(t pipeline.Topology) []row {
	rows := make([]row, 0, len(t.Buses))
	for _, b := range t.Buses {
		rows = append(rows, row{insertBus, []interface{}{
			t.PID.String(), b.Label, b.Index, b.Zone, b.X, b.Y, b.Fallback,
		}})
	}
	return rows
}

func (h Handler) write(ctx context.Context, db *sql.DB, m msg.Msg) error {
	var rows []row
	switch p := m.Payload().(type) {
	case pipeline.ZoneReport:
		rows = reportRows(p)
	case pipeline.Topology:
		rows = topologyRows(p)
	default:
		return fmt.Errorf("unexpected %v payload %T", m.Topic(), p)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := tx.ExecContext(ctx, bind(h.config.Driver, r.stmt), r.args...); err != nil {
			tx.Rollback()
			return describe(err)
		}
	}
	return tx.Commit()
}

// describe adds the server error code for the drivers that report one.
func describe(err error) error {
	if pqErr, ok := err.(*pq.Error); ok {
		return fmt.Errorf("postgres %s: %w", pqErr.Code, err)
	}
	if myErr, ok := err.(*mysql.MySQLError); ok {
		return fmt.Errorf("mysql %d: %w", myErr.Number, err)
	}
	return err
}

// Process writes every message from the inbox until it is closed or ctx is
// done.
func (h Handler) Process(ctx context.Context) error {
	log.Printf("[SQL] Process Started (%s)\n", h.config.Driver)
	db, err := h.DB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := initDBTables(ctx, db); err != nil {
		return describe(err)
	}

loop:
	for {
		select {
		case m, ok := <-h.inbox:
			if !ok {
				break loop
			}
			if err := h.write(ctx, db, m); err != nil {
				log.Printf("[SQL] %v: %v\n", m.Topic(), err)
			}
		case <-ctx.Done():
			break loop
		}
	}
	log.Println("[SQL] Process Shutdown")
	return ctx.Err()
}
