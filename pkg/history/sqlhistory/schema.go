package sqlhistory

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	sessionsTable        = "sessions"
	responsesTable       = "responses"
	responseContextTable = "response_context"
)

var (
	// SessionsColumns holds the columns for the "sessions" table.
	SessionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "last_response_id", Type: field.TypeString, Nullable: true},
		{Name: "version", Type: field.TypeInt64, Default: 0},
		{Name: "created_at", Type: field.TypeTime},
	}
	// SessionsTable holds the schema information for the "sessions" table.
	SessionsTable = &schema.Table{
		Name:       sessionsTable,
		Columns:    SessionsColumns,
		PrimaryKey: []*schema.Column{SessionsColumns[0]},
	}

	// ResponsesColumns holds the columns for the "responses" table.
	ResponsesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "prev_id", Type: field.TypeString, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "source", Type: field.TypeString},
		{Name: "input", Type: field.TypeString, Size: 2147483647},
		{Name: "rephrased_question", Type: field.TypeString, Size: 2147483647},
		{Name: "output", Type: field.TypeString, Size: 2147483647},
		{Name: "query", Type: field.TypeString, Nullable: true, Size: 2147483647},
		{Name: "session_id", Type: field.TypeString},
	}
	// ResponsesTable holds the schema information for the "responses" table.
	ResponsesTable = &schema.Table{
		Name:       responsesTable,
		Columns:    ResponsesColumns,
		PrimaryKey: []*schema.Column{ResponsesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "responses_sessions_responses",
				Columns:    []*schema.Column{ResponsesColumns[8]},
				RefColumns: []*schema.Column{SessionsColumns[0]},
				OnDelete:   schema.NoAction,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "response_session_id",
				Unique:  false,
				Columns: []*schema.Column{ResponsesColumns[8]},
			},
		},
	}

	// ResponseContextColumns holds the columns for the "response_context" table.
	ResponseContextColumns = []*schema.Column{
		{Name: "response_id", Type: field.TypeString},
		{Name: "position", Type: field.TypeInt},
		{Name: "source_id", Type: field.TypeString},
	}
	// ResponseContextTable holds the schema information for the "response_context" table.
	ResponseContextTable = &schema.Table{
		Name:       responseContextTable,
		Columns:    ResponseContextColumns,
		PrimaryKey: []*schema.Column{ResponseContextColumns[0], ResponseContextColumns[1]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "response_context_responses_context",
				Columns:    []*schema.Column{ResponseContextColumns[0]},
				RefColumns: []*schema.Column{ResponsesColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
	}

	// Tables holds all the tables in the history schema.
	Tables = []*schema.Table{
		SessionsTable,
		ResponsesTable,
		ResponseContextTable,
	}
)

func init() {
	ResponsesTable.ForeignKeys[0].RefTable = SessionsTable
	ResponseContextTable.ForeignKeys[0].RefTable = ResponsesTable
}

// Migrate creates or updates the history tables. Changes are append-only:
// new tables, columns and indexes.
func Migrate(ctx context.Context, drv dialect.Driver) error {
	migrate, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("failed to create migration: %w", err)
	}
	if err := migrate.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
