// Package daily generates date-keyed daily reports and carries unfinished
// tasks forward from the previous report.
package daily

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/starford/chronicle/internal/apperr"
	"github.com/starford/chronicle/internal/frontmatter"
	"github.com/starford/chronicle/internal/models"
	"github.com/starford/chronicle/internal/storage"
)

// Dir is the vault directory holding daily reports.
const Dir = "daily"

// Date layouts.
const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// Default headings and carry-forward label.
const (
	DefaultDoneHeading     = "Done Today"
	DefaultTomorrowHeading = "Tomorrow's Tasks"
	DefaultCarryLabel      = "Carried over"
)

var (
	monthDirRE = regexp.MustCompile(`^\d{4}-\d{2}$`)
	// sectionEndRE matches a heading of level one or two.
	sectionEndRE = regexp.MustCompile(`^#{1,2}(\s|$)`)
)

// Service creates and lists daily reports.
type Service struct {
	store    storage.Provider
	done     string
	tomorrow string
	label    string
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithHeadings overrides the "done" and "tomorrow" section headings.
func WithHeadings(done, tomorrow string) Option {
	return func(s *Service) {
		if done != "" {
			s.done = done
		}
		if tomorrow != "" {
			s.tomorrow = tomorrow
		}
	}
}

// WithClock sets the time source used for "today" and created timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a daily report service over store.
func NewService(store storage.Provider, opts ...Option) *Service {
	s := &Service{
		store:    store,
		done:     DefaultDoneHeading,
		tomorrow: DefaultTomorrowHeading,
		label:    DefaultCarryLabel,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Headings returns the configured "done" and "tomorrow" headings.
func (s *Service) Headings() (done, tomorrow string) {
	return s.done, s.tomorrow
}

// ReportPath returns the vault path of the report for day.
func ReportPath(day time.Time) string {
	return path.Join(Dir, day.Format(MonthLayout), day.Format(DateLayout)+storage.DocExt)
}

// CreateToday creates the report for date (YYYY-MM-DD, empty or invalid means
// today). An existing report is returned unchanged with status "exists".
func (s *Service) CreateToday(ctx context.Context, date string) (*models.DailyResult, error) {
	day := s.today()
	if date != "" {
		if d, err := time.ParseInLocation(DateLayout, date, day.Location()); err == nil {
			day = d
		} else {
			s.logger.Warn("invalid daily date, using today", slog.String("date", date))
		}
	}

	rel := ReportPath(day)
	if s.store.Exists(rel) {
		return &models.DailyResult{Path: rel, Status: models.DailyExists}, nil
	}

	created := frontmatter.Timestamp(s.now())
	index := path.Join(Dir, storage.IndexName)
	if !s.store.Exists(index) {
		content := frontmatter.Encode(frontmatter.Meta{Title: "Daily", Type: "note", Created: created}, "# Daily\n\n")
		if err := s.store.Write(index, content); err != nil {
			return nil, err
		}
	}

	var carry []string
	prev, err := s.previous(ctx, day)
	if err != nil {
		return nil, err
	}
	if prev != "" {
		if data, err := s.store.Read(prev); err == nil {
			carry = ExtractSection(string(data), s.tomorrow)
		}
	}

	var body strings.Builder
	body.WriteString("## " + s.done + "\n\n")
	if len(carry) > 0 {
		body.WriteString("> **" + s.label + ":**\n")
		for _, line := range carry {
			body.WriteString("> " + line + "\n")
		}
		body.WriteString("\n")
	}
	body.WriteString("\n## " + s.tomorrow + "\n\n")

	meta := frontmatter.Meta{
		Title:   day.Format(DateLayout) + " Daily Report",
		Type:    "daily",
		Created: created,
	}
	if err := s.store.Write(rel, frontmatter.Encode(meta, body.String())); err != nil {
		return nil, err
	}
	s.logger.Info("daily report created",
		slog.String("path", rel),
		slog.String("previous", prev),
		slog.Int("carried", len(carry)))
	return &models.DailyResult{Path: rel, Status: models.DailyCreated}, nil
}

func (s *Service) today() time.Time {
	now := s.now()
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// previous returns the latest report strictly before day, or "" if none.
func (s *Service) previous(ctx context.Context, day time.Time) (string, error) {
	months, err := s.subdirs(Dir)
	if err != nil {
		return "", err
	}
	target := day.Format(DateLayout)
	best, bestDate := "", ""
	for _, m := range months {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		for _, rep := range s.reports(path.Join(Dir, m)) {
			if rep.date < target && rep.date > bestDate {
				best, bestDate = rep.path, rep.date
			}
		}
	}
	return best, nil
}

// ExtractSection returns the non-blank lines under the "## heading" line, up
// to the next heading of level one or two or the end of text.
func ExtractSection(text, heading string) []string {
	start := regexp.MustCompile(`^##\s+` + regexp.QuoteMeta(heading))
	var out []string
	capturing := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if !capturing {
			capturing = start.MatchString(line)
			continue
		}
		trimmed := strings.TrimSpace(line)
		if sectionEndRE.MatchString(trimmed) {
			break
		}
		if trimmed != "" {
			out = append(out, line)
		}
	}
	return out
}

// Calendar lists the reports of one month ordered by date.
func (s *Service) Calendar(_ context.Context, year, month int) ([]models.CalendarEntry, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("daily: month %d out of range: %w", month, apperr.ErrInvalidQuery)
	}
	if year < 1 || year > 9999 {
		return nil, fmt.Errorf("daily: year %d out of range: %w", year, apperr.ErrInvalidQuery)
	}
	dir := path.Join(Dir, fmt.Sprintf("%04d-%02d", year, month))
	out := []models.CalendarEntry{}
	for _, rep := range s.reports(dir) {
		title := rep.date
		if data, err := s.store.Read(rep.path); err == nil {
			fields, _ := frontmatter.Decode(data)
			title = frontmatter.MetaOf(fields, rep.date).Title
		}
		out = append(out, models.CalendarEntry{Date: rep.date, Path: rep.path, Title: title})
	}
	return out, nil
}

// Months lists the YYYY-MM directories holding reports, optionally limited to
// one year (0 means all years).
func (s *Service) Months(_ context.Context, year int) ([]string, error) {
	dirs, err := s.subdirs(Dir)
	if err != nil {
		return nil, err
	}
	out := []string{}
	prefix := ""
	if year > 0 {
		prefix = fmt.Sprintf("%04d-", year)
	}
	for _, d := range dirs {
		if monthDirRE.MatchString(d) && strings.HasPrefix(d, prefix) {
			out = append(out, d)
		}
	}
	return out, nil
}

type report struct {
	date string
	path string
}

// reports lists the dated documents directly under dir, sorted by date.
func (s *Service) reports(dir string) []report {
	abs, err := s.store.Resolve(dir)
	if err != nil {
		return nil
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil
	}
	var out []report
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !strings.HasSuffix(name, storage.DocExt) || name == storage.IndexName {
			continue
		}
		stem := strings.TrimSuffix(name, storage.DocExt)
		if _, err := time.Parse(DateLayout, stem); err != nil {
			continue
		}
		out = append(out, report{date: stem, path: path.Join(dir, name)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].date < out[j].date })
	return out
}

// subdirs lists the visible subdirectories of dir; a missing dir is empty.
func (s *Service) subdirs(dir string) ([]string, error) {
	abs, err := s.store.Resolve(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("daily: list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && !storage.IsHidden(e.Name()) {
			out = append(out, e.Name())
		}
	}
	return out, nil
}
