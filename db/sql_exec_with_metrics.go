package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/openg2p/g2p-bridge-backend/internal/monitor"
)

// SQLExecuterWithMetrics is a wrapper around SQLExecuter that also monitors the duration of every query.
type SQLExecuterWithMetrics struct {
	SQLExecuter
	monitorServiceInterface monitor.MonitorServiceInterface
}

func NewSQLExecuterWithMetrics(sqlExec SQLExecuter, monitorServiceInterface monitor.MonitorServiceInterface) (*SQLExecuterWithMetrics, error) {
	if sqlExec == nil {
		return nil, fmt.Errorf("sqlExec cannot be nil")
	}

	if monitorServiceInterface == nil {
		return nil, fmt.Errorf("monitorServiceInterface cannot be nil")
	}

	return &SQLExecuterWithMetrics{
		SQLExecuter:             sqlExec,
		monitorServiceInterface: monitorServiceInterface,
	}, nil
}

type QueryType string

const (
	SelectQueryType    QueryType = "SELECT"
	InsertQueryType    QueryType = "INSERT"
	UpdateQueryType    QueryType = "UPDATE"
	DeleteQueryType    QueryType = "DELETE"
	UndefinedQueryType QueryType = "UNDEFINED"
)

func getQueryType(query string) QueryType {
	words := strings.Fields(strings.TrimSpace(query))
	if len(words) == 0 {
		return UndefinedQueryType
	}

	switch strings.ToUpper(words[0]) {
	case "SELECT":
		return SelectQueryType
	case "INSERT":
		return InsertQueryType
	case "UPDATE":
		return UpdateQueryType
	case "DELETE":
		return DeleteQueryType
	default:
		return UndefinedQueryType
	}
}

func getMetricTag(err error) monitor.MetricTag {
	if err != nil {
		return monitor.FailureQueryDurationTag
	}
	return monitor.SuccessfulQueryDurationTag
}

// monitorDBQueryDuration sends the query duration to the monitor service, bucketed by success or failure.
func (sqlExec *SQLExecuterWithMetrics) monitorDBQueryDuration(since time.Time, query string, err error) {
	duration := time.Since(since)

	labels := monitor.DBQueryLabels{
		QueryType: string(getQueryType(query)),
	}

	monitorErr := sqlExec.monitorServiceInterface.MonitorDBQueryDuration(duration, getMetricTag(err), labels)
	if monitorErr != nil {
		// complain without failing the caller's query
		fmt.Printf("Error trying to monitor db query duration: %s\n", monitorErr)
	}
}

func (sqlExec *SQLExecuterWithMetrics) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	then := time.Now()

	err := sqlExec.SQLExecuter.GetContext(ctx, dest, query, args...)

	defer sqlExec.monitorDBQueryDuration(then, query, err)

	return err
}

func (sqlExec *SQLExecuterWithMetrics) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	then := time.Now()

	err := sqlExec.SQLExecuter.SelectContext(ctx, dest, query, args...)

	defer sqlExec.monitorDBQueryDuration(then, query, err)

	return err
}

func (sqlExec *SQLExecuterWithMetrics) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	then := time.Now()

	result, err := sqlExec.SQLExecuter.ExecContext(ctx, query, args...)

	defer sqlExec.monitorDBQueryDuration(then, query, err)

	return result, err
}

func (sqlExec *SQLExecuterWithMetrics) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	then := time.Now()

	rows, err := sqlExec.SQLExecuter.QueryContext(ctx, query, args...)

	defer sqlExec.monitorDBQueryDuration(then, query, err)

	return rows, err
}

func (sqlExec *SQLExecuterWithMetrics) QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	then := time.Now()

	rows, err := sqlExec.SQLExecuter.QueryxContext(ctx, query, args...)

	defer sqlExec.monitorDBQueryDuration(then, query, err)

	return rows, err
}

func (sqlExec *SQLExecuterWithMetrics) QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row {
	then := time.Now()

	row := sqlExec.SQLExecuter.QueryRowxContext(ctx, query, args...)

	defer sqlExec.monitorDBQueryDuration(then, query, row.Err())

	return row
}

// make sure *SQLExecuterWithMetrics implements SQLExecuter:
var _ SQLExecuter = (*SQLExecuterWithMetrics)(nil)
