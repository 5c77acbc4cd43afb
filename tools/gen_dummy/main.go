/*
Kompilasi manual:
  go build -o tools/gen_dummy/gen_dummy ./tools/gen_dummy

Pakai contoh:
  ./tools/gen_dummy/gen_dummy -n 5000 -years 2022-2024 -out tools/gen_dummy/sample_workhistory.json
  ./tools/gen_dummy/gen_dummy -n 20000 -dsn "root:password@tcp(127.0.0.1:3306)/workhistory?parseTime=true"
  ./tools/gen_dummy/gen_dummy -csv export.csv -sqlite data/workhistory.db
*/

// [FILE] tools/gen_dummy/main.go
package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Strikerin/SalesPerformanceDashboard/internal/logging"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/repositories/mysql"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/repositories/sqlite"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/repositories/sqlrepo"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/util"
	wh "github.com/Strikerin/SalesPerformanceDashboard/internal/workhistory"
)

var (
	n          = flag.Int("n", 2000, "number of synthetic operation rows")
	years      = flag.String("years", "2022-2024", "year or range, e.g. 2024 or 2021-2024")
	seed       = flag.Uint64("seed", 42, "random seed; equal seeds give equal rows")
	csvPath    = flag.String("csv", "", "load rows from a CSV export instead of generating")
	outPath    = flag.String("out", "", "write rows as a JSON array to this file (- for stdout)")
	dsn        = flag.String("dsn", "", "MySQL DSN to insert into")
	sqlitePath = flag.String("sqlite", "", "SQLite store to insert into")
	batchID    = flag.String("batch", "", "batch id for inserted rows (default: new uuid)")
)

func main() {
	flag.Parse()
	log, err := logging.New("info", "console")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := run(context.Background(), log); err != nil {
		log.Fatal("gen_dummy failed", zap.Error(err))
	}
}

func run(ctx context.Context, log *zap.Logger) error {
	var rows []wh.RawRecord
	if *csvPath != "" {
		f, err := os.Open(*csvPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if rows, err = readCSV(f); err != nil {
			return fmt.Errorf("read %s: %w", *csvPath, err)
		}
		log.Info("csv loaded", zap.String("path", *csvPath), zap.Int("rows", len(rows)))
	} else {
		from, to, err := parseYears(*years)
		if err != nil {
			return err
		}
		rows = generate(genConfig{Rows: *n, FromYear: from, ToYear: to, Seed: *seed})
		log.Info("rows generated", zap.Int("rows", len(rows)), zap.Int("from", from), zap.Int("to", to))
	}

	if *outPath == "" && *dsn == "" && *sqlitePath == "" {
		*outPath = "-"
	}
	if *outPath != "" {
		if err := writeJSON(*outPath, rows); err != nil {
			return err
		}
	}
	if *dsn == "" && *sqlitePath == "" {
		return nil
	}

	if err := wh.Validate(rows); err != nil {
		return err
	}
	db, err := openStore(ctx, log)
	if err != nil {
		return err
	}
	defer db.Close()

	id := *batchID
	if id == "" {
		id = util.NewBatchID()
	}
	stored, err := (&sqlrepo.WorkHistoryRepo{DB: db}).Insert(ctx, id, rows)
	if err != nil {
		return err
	}
	log.Info("[ok] inserted work_history rows", zap.Int("rows", stored), zap.String("batch_id", id))
	return nil
}

func openStore(ctx context.Context, log *zap.Logger) (*sql.DB, error) {
	if *dsn != "" {
		db, err := mysql.Open(ctx, *dsn, mysql.Config{PingAttempts: 5, PingInterval: 2 * time.Second}, log)
		if err != nil {
			return nil, err
		}
		if err := mysql.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	}
	return sqlite.Open(ctx, *sqlitePath)
}

func writeJSON(path string, rows []wh.RawRecord) error {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	return enc.Encode(rows)
}

func parseYears(s string) (int, int, error) {
	lo, hi, found := strings.Cut(strings.TrimSpace(s), "-")
	from, err := strconv.Atoi(lo)
	if err != nil {
		return 0, 0, fmt.Errorf("bad -years %q", s)
	}
	to := from
	if found {
		if to, err = strconv.Atoi(hi); err != nil || to < from {
			return 0, 0, fmt.Errorf("bad -years %q", s)
		}
	}
	return from, to, nil
}

/* ======================= generator ======================= */

type genConfig struct {
	Rows     int
	FromYear int
	ToYear   int
	Seed     uint64
}

var (
	workCenters = []string{"WELD", "CNC", "LATHE", "PAINT", "ASSY", "NDT", "QA"}
	customers   = []string{"Aerodyne Industries", "Baker Hughes", "Coastal Pumps", "Delta Marine", "Everest Energy", "Fjord Subsea"}
	parts       = []string{"Gate Valve 6in", "Pump Shaft", "Bearing Housing", "Impeller", "Flange Adapter", "Seal Carrier", "Choke Body"}
	tasks       = []string{"Dismantling & Inspection", "Machining", "Welding repair", "Final assembly", "Pressure test", "Painting", "Balancing"}
	notes       = []string{"", "", "", "", "waiting for material", "vendor delay", "NCR raised: wrong bore", "quality issue on weld", "rework after NCR"}
)

func pick[T any](r *rand.Rand, s []T) T { return s[r.IntN(len(s))] }

// generate builds cfg.Rows operation lines grouped into jobs of 1-8 operations.
// About 1% are spreadsheet "Grand Total" lines and 1% have no date, so the
// exclusion counters have something to count.
func generate(cfg genConfig) []wh.RawRecord {
	r := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	span := cfg.ToYear - cfg.FromYear + 1
	out := make([]wh.RawRecord, 0, cfg.Rows)

	job := 0
	for len(out) < cfg.Rows {
		job++
		jobID := fmt.Sprintf("J%06d", job)
		customer := pick(r, customers)
		part := pick(r, parts)
		year := cfg.FromYear + r.IntN(span)
		start := time.Date(year, time.Month(1+r.IntN(12)), 1+r.IntN(28), 0, 0, 0, 0, time.UTC)
		wo := fmt.Sprintf("WO-%d-%04d", year, job%10000)

		ops := 1 + r.IntN(8)
		for op := 0; op < ops && len(out) < cfg.Rows; op++ {
			planned := float64(1+r.IntN(80)) / 2
			actual := planned * (0.6 + r.Float64()*1.2)
			if r.IntN(40) == 0 {
				actual = 0 // never booked
			}
			row := wh.RawRecord{
				Date:            wh.Flex(start.AddDate(0, 0, op*r.IntN(4)).Format("2006-01-02")),
				JobID:           wh.Flex(jobID),
				JobNumber:       wh.Flex(jobID),
				WorkOrderNumber: wh.Flex(wo),
				OperationNumber: wh.Flex(strconv.Itoa((op + 1) * 10)),
				PartID:          wh.Flex(fmt.Sprintf("P-%03d", r.IntN(500))),
				PartName:        wh.Flex(part),
				WorkCenter:      wh.Flex(pick(r, workCenters)),
				CompanyName:     wh.Flex(customer),
				TaskDescription: wh.Flex(pick(r, tasks)),
				PlannedHours:    wh.Flex(strconv.FormatFloat(planned, 'f', 1, 64)),
				ActualHours:     wh.Flex(strconv.FormatFloat(actual, 'f', 2, 64)),
				Notes:           wh.Flex(pick(r, notes)),
			}
			if r.IntN(5) == 0 {
				row.OperWorkCenter = wh.Flex(pick(r, workCenters))
			}
			if r.IntN(10) == 0 {
				row.LaborRate = wh.Flex(strconv.Itoa(150 + 10*r.IntN(10)))
			}
			switch r.IntN(100) {
			case 0:
				row.WorkCenter, row.OperWorkCenter = wh.GrandTotalLabel, ""
			case 1:
				row.Date = ""
			}
			out = append(out, row)
		}
	}
	return out
}

/* ======================= CSV import ======================= */

// csvColumns maps accepted header spellings to RawRecord fields.
var csvColumns = map[string]func(*wh.RawRecord, string){
	"date":                  func(r *wh.RawRecord, v string) { r.Date = wh.Flex(v) },
	"operation_finish_date": func(r *wh.RawRecord, v string) { r.Date = wh.Flex(v) },
	"job_id":                func(r *wh.RawRecord, v string) { r.JobID = wh.Flex(v) },
	"job_number":            func(r *wh.RawRecord, v string) { r.JobNumber = wh.Flex(v) },
	"work_order_number":     func(r *wh.RawRecord, v string) { r.WorkOrderNumber = wh.Flex(v) },
	"operation_number":      func(r *wh.RawRecord, v string) { r.OperationNumber = wh.Flex(v) },
	"part_id":               func(r *wh.RawRecord, v string) { r.PartID = wh.Flex(v) },
	"part_name":             func(r *wh.RawRecord, v string) { r.PartName = wh.Flex(v) },
	"work_center":           func(r *wh.RawRecord, v string) { r.WorkCenter = wh.Flex(v) },
	"oper_work_center":      func(r *wh.RawRecord, v string) { r.OperWorkCenter = wh.Flex(v) },
	"company_name":          func(r *wh.RawRecord, v string) { r.CompanyName = wh.Flex(v) },
	"customer_name":         func(r *wh.RawRecord, v string) { r.CustomerName = wh.Flex(v) },
	"task_description":      func(r *wh.RawRecord, v string) { r.TaskDescription = wh.Flex(v) },
	"oper_short_text":       func(r *wh.RawRecord, v string) { r.OperShortText = wh.Flex(v) },
	"planned_hours":         func(r *wh.RawRecord, v string) { r.PlannedHours = wh.Flex(v) },
	"actual_hours":          func(r *wh.RawRecord, v string) { r.ActualHours = wh.Flex(v) },
	"labor_rate":            func(r *wh.RawRecord, v string) { r.LaborRate = wh.Flex(v) },
	"notes":                 func(r *wh.RawRecord, v string) { r.Notes = wh.Flex(v) },
}

func headerIndex(h []string) map[string]int {
	m := map[string]int{}
	for i, c := range h {
		c = strings.TrimPrefix(c, "\ufeff")
		c = strings.TrimSpace(strings.ToLower(c))
		c = strings.ReplaceAll(c, " ", "_")
		m[c] = i
	}
	return m
}

func ensureColumns(idx map[string]int, anyOf ...[]string) error {
	for _, group := range anyOf {
		found := false
		for _, c := range group {
			if _, ok := idx[c]; ok {
				found = true
			}
		}
		if !found {
			return fmt.Errorf("missing column %q in CSV header", strings.Join(group, "|"))
		}
	}
	return nil
}

func readCSV(src io.Reader) ([]wh.RawRecord, error) {
	r := csv.NewReader(bufio.NewReader(src))
	r.FieldsPerRecord = -1

	head, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	idx := headerIndex(head)
	if err := ensureColumns(idx, []string{"job_id", "job_number"}, []string{"work_center", "oper_work_center"}); err != nil {
		return nil, err
	}

	var rows []wh.RawRecord
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		var row wh.RawRecord
		for col, i := range idx {
			set, ok := csvColumns[col]
			if ok && i < len(rec) {
				set(&row, rec[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
