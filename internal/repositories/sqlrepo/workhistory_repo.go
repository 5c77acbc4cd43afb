// internal/repositories/sqlrepo/workhistory_repo.go
// Repo work_history: raw upload rows, shared by the MySQL and SQLite stores.
package sqlrepo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Strikerin/SalesPerformanceDashboard/internal/workhistory"
)

// insertBatch rows per multi-row INSERT; keeps the bind count under SQLite's limit.
const insertBatch = 400

// rowColumns is the insert order; it must match rawArgs.
var rowColumns = []string{
	"batch_id", "row_no", "created_at", "work_year", "eff_work_center",
	"work_date", "job_id", "job_number", "work_order_number", "operation_number",
	"part_id", "part_name", "work_center", "oper_work_center",
	"company_name", "customer_name", "task_description", "oper_short_text",
	"planned_hours", "actual_hours", "labor_rate", "notes",
}

const selectColumns = `work_date, job_id, job_number, work_order_number, operation_number,
	part_id, part_name, work_center, oper_work_center,
	company_name, customer_name, task_description, oper_short_text,
	planned_hours, actual_hours, labor_rate, notes`

type WorkHistoryRepo struct{ DB *sql.DB }

type Filter struct {
	Year       int    // 0 = every year
	Customer   string // substring
	Part       string // substring
	WorkCenter string // substring on the effective work center
	BatchID    string
	Limit      int // <= 0 = no limit
	Offset     int
}

type BatchInfo struct {
	BatchID   string    `json:"batch_id"`
	Rows      int64     `json:"rows"`
	CreatedAt time.Time `json:"created_at"`
}

// Insert writes raws under batchID in one transaction and returns the number of rows stored.
func (r *WorkHistoryRepo) Insert(ctx context.Context, batchID string, raws []workhistory.RawRecord) (int, error) {
	if len(raws) == 0 {
		return 0, nil
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC().Unix()
	rowPH := "(" + placeholders(len(rowColumns)) + ")"
	head := "INSERT INTO work_history(" + strings.Join(rowColumns, ", ") + ") VALUES "

	n := 0
	for start := 0; start < len(raws); start += insertBatch {
		end := min(start+insertBatch, len(raws))
		chunk := raws[start:end]

		vals := make([]any, 0, len(chunk)*len(rowColumns))
		for i, raw := range chunk {
			vals = append(vals, rawArgs(batchID, start+i, now, raw)...)
		}
		q := head + strings.TrimRight(strings.Repeat(rowPH+",", len(chunk)), ",")
		if _, err := tx.ExecContext(ctx, q, vals...); err != nil {
			return 0, fmt.Errorf("insert work_history rows %d-%d: %w", start, end-1, err)
		}
		n += len(chunk)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// rawArgs stores the raw text plus two derived columns used only for filtering.
func rawArgs(batchID string, rowNo int, createdAt int64, raw workhistory.RawRecord) []any {
	rec := workhistory.Normalize(raw)
	return []any{
		batchID, rowNo, createdAt, rec.Year(), rec.WorkCenter,
		raw.Date.String(), raw.JobID.String(), raw.JobNumber.String(),
		raw.WorkOrderNumber.String(), raw.OperationNumber.String(),
		raw.PartID.String(), raw.PartName.String(), raw.WorkCenter.String(), raw.OperWorkCenter.String(),
		raw.CompanyName.String(), raw.CustomerName.String(), raw.TaskDescription.String(), raw.OperShortText.String(),
		raw.PlannedHours.String(), raw.ActualHours.String(), raw.LaborRate.String(), raw.Notes.String(),
	}
}

func where(f Filter) (string, []any) {
	var sb strings.Builder
	var args []any
	sb.WriteString(` WHERE 1=1`)
	if f.Year > 0 {
		sb.WriteString(` AND work_year = ?`)
		args = append(args, f.Year)
	}
	if f.Customer != "" {
		sb.WriteString(` AND (company_name LIKE ? OR customer_name LIKE ?)`)
		args = append(args, "%"+f.Customer+"%", "%"+f.Customer+"%")
	}
	if f.Part != "" {
		sb.WriteString(` AND part_name LIKE ?`)
		args = append(args, "%"+f.Part+"%")
	}
	if f.WorkCenter != "" {
		sb.WriteString(` AND eff_work_center LIKE ?`)
		args = append(args, "%"+f.WorkCenter+"%")
	}
	if f.BatchID != "" {
		sb.WriteString(` AND batch_id = ?`)
		args = append(args, f.BatchID)
	}
	return sb.String(), args
}

// List returns raw rows in insertion order. Callers re-normalize them.
func (r *WorkHistoryRepo) List(ctx context.Context, f Filter) ([]workhistory.RawRecord, error) {
	w, args := where(f)
	q := `SELECT ` + selectColumns + ` FROM work_history` + w + ` ORDER BY id ASC`
	if f.Limit > 0 {
		if f.Offset < 0 {
			f.Offset = 0
		}
		q += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query work_history: %w", err)
	}
	defer rows.Close()

	out := make([]workhistory.RawRecord, 0)
	for rows.Next() {
		var (
			raw workhistory.RawRecord
			s   [17]string
		)
		if err := rows.Scan(&s[0], &s[1], &s[2], &s[3], &s[4], &s[5], &s[6], &s[7], &s[8],
			&s[9], &s[10], &s[11], &s[12], &s[13], &s[14], &s[15], &s[16]); err != nil {
			return nil, fmt.Errorf("scan work_history: %w", err)
		}
		raw.Date, raw.JobID, raw.JobNumber = workhistory.Flex(s[0]), workhistory.Flex(s[1]), workhistory.Flex(s[2])
		raw.WorkOrderNumber, raw.OperationNumber = workhistory.Flex(s[3]), workhistory.Flex(s[4])
		raw.PartID, raw.PartName = workhistory.Flex(s[5]), workhistory.Flex(s[6])
		raw.WorkCenter, raw.OperWorkCenter = workhistory.Flex(s[7]), workhistory.Flex(s[8])
		raw.CompanyName, raw.CustomerName = workhistory.Flex(s[9]), workhistory.Flex(s[10])
		raw.TaskDescription, raw.OperShortText = workhistory.Flex(s[11]), workhistory.Flex(s[12])
		raw.PlannedHours, raw.ActualHours = workhistory.Flex(s[13]), workhistory.Flex(s[14])
		raw.LaborRate, raw.Notes = workhistory.Flex(s[15]), workhistory.Flex(s[16])
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

func (r *WorkHistoryRepo) Count(ctx context.Context, f Filter) (int64, error) {
	w, args := where(f)
	var total int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM work_history`+w, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count work_history: %w", err)
	}
	return total, nil
}

// Years lists the distinct dated years, ascending.
func (r *WorkHistoryRepo) Years(ctx context.Context) ([]int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT DISTINCT work_year FROM work_history WHERE work_year > 0 ORDER BY work_year ASC`)
	if err != nil {
		return nil, fmt.Errorf("query years: %w", err)
	}
	defer rows.Close()

	out := make([]int, 0)
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("scan year: %w", err)
		}
		out = append(out, y)
	}
	return out, rows.Err()
}

// Batches lists uploads, newest first.
func (r *WorkHistoryRepo) Batches(ctx context.Context) ([]BatchInfo, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT batch_id, COUNT(*), MIN(created_at)
		FROM work_history
		GROUP BY batch_id
		ORDER BY MIN(created_at) DESC, batch_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	out := make([]BatchInfo, 0)
	for rows.Next() {
		var (
			b  BatchInfo
			ts int64
		)
		if err := rows.Scan(&b.BatchID, &b.Rows, &ts); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		b.CreatedAt = time.Unix(ts, 0).UTC()
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *WorkHistoryRepo) DeleteBatch(ctx context.Context, batchID string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM work_history WHERE batch_id = ?`, batchID)
	if err != nil {
		return 0, fmt.Errorf("delete batch %s: %w", batchID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// placeholders returns "?,?,...,?" with n marks.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
