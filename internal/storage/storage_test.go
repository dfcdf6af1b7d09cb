package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/taskstore"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

func testTaskEvent() taskstore.TaskEvent {
	return taskstore.TaskEvent{
		Task: types.Task{
			ID:               "0123456789abcdef",
			MarketID:         "market-123",
			Type:             types.TaskBuy,
			Strategy:         types.StrategyMaker,
			ArbSide:          types.SideYES,
			Quantity:         100,
			PredictFilledQty: 40,
			HedgedQty:        30,
			RemainingQty:     10,
			Status:           types.StatusPartiallyFilled,
		},
		At:   time.Now(),
		Kind: "updated",
	}
}

func TestConsoleSink_New(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	sink := NewConsoleSink(logger)
	if sink == nil {
		t.Fatal("expected non-nil sink")
	}
}

func TestConsoleSink_RecordTaskEvent(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	sink := NewConsoleSink(logger)
	event := testTaskEvent()

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := sink.RecordTaskEvent(context.Background(), event)

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	io.Copy(&buf, r)
	output := buf.String()

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if !bytes.Contains([]byte(output), []byte(event.Task.MarketID)) {
		t.Errorf("expected output to contain market id %s", event.Task.MarketID)
	}
	if !bytes.Contains([]byte(output), []byte(event.Kind)) {
		t.Errorf("expected output to contain event kind %s", event.Kind)
	}
}

func TestConsoleSink_Close(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	sink := NewConsoleSink(logger)
	if err := sink.Close(); err != nil {
		t.Errorf("expected no error on close, got %v", err)
	}
}

func TestPostgresSink_RecordTaskEvent(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	sink := &PostgresSink{db: db, logger: logger}
	event := testTaskEvent()

	mock.ExpectExec("INSERT INTO task_events").
		WithArgs(event.Task.ID, event.Kind, event.Task.MarketID, event.Task.Status, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := sink.RecordTaskEvent(context.Background(), event); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresSink_RecordTaskEvent_Error(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	sink := &PostgresSink{db: db, logger: logger}
	event := testTaskEvent()

	mock.ExpectExec("INSERT INTO task_events").
		WithArgs(event.Task.ID, event.Kind, event.Task.MarketID, event.Task.Status, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(sqlmock.ErrCancelled)

	if err := sink.RecordTaskEvent(context.Background(), event); err == nil {
		t.Error("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresSink_Close(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	sink := &PostgresSink{db: db, logger: logger}
	mock.ExpectClose()

	if err := sink.Close(); err != nil {
		t.Errorf("expected no error on close, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSink_Interface(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	var _ Sink = NewConsoleSink(logger)

	db, _, _ := sqlmock.New()
	defer db.Close()

	var _ Sink = &PostgresSink{db: db, logger: logger}
	var _ taskstore.AuditSink = &PostgresSink{db: db, logger: logger}
}
