package scoreboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"example.com/habitboard/internal/events"
	"example.com/habitboard/internal/lock"
	"example.com/habitboard/internal/observability"
	"example.com/habitboard/internal/sheets"
)

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithUserCache enables header caching for user lookups.
func WithUserCache(cache UserCache) Option {
	return func(s *Service) {
		s.users = cache
	}
}

// WithLocker replaces the in-process sheet lock, e.g. with a Redis lock shared across instances.
func WithLocker(locker Locker) Option {
	return func(s *Service) {
		s.locker = locker
	}
}

// WithPublisher enables score events.
func WithPublisher(publisher Publisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithPublishTimeout bounds how long a write waits on its score event.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithDefaultSheet sets the worksheet used when a request names none.
func WithDefaultSheet(sheet string) Option {
	return func(s *Service) {
		s.defaultSheet = strings.TrimSpace(sheet)
	}
}

// WithClock overrides the time source used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service orchestrates score reads and writes against a spreadsheet.
type Service struct {
	client         sheets.Client
	users          UserCache
	locker         Locker
	publisher      Publisher
	publishTimeout time.Duration
	logger         *zap.Logger
	defaultSheet   string
	now            func() time.Time
}

// DefaultPublishTimeout bounds a score event publish unless WithPublishTimeout says otherwise.
const DefaultPublishTimeout = 2 * time.Second

// NewService constructs a Service over the given spreadsheet client.
func NewService(client sheets.Client, opts ...Option) *Service {
	s := &Service{
		client:         client,
		locker:         lock.NewLocalLocker(),
		publishTimeout: DefaultPublishTimeout,
		logger:         zap.NewNop(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultSheet reports the worksheet used when a request names none.
func (s *Service) DefaultSheet() string {
	return s.defaultSheet
}

func (s *Service) sheetName(raw string) (string, error) {
	sheet := strings.TrimSpace(raw)
	if sheet == "" {
		sheet = s.defaultSheet
	}
	if sheet == "" {
		return "", fmt.Errorf("%w: sheet is required", ErrValidation)
	}
	return sheet, nil
}

// SheetValues returns the raw values of a worksheet.
func (s *Service) SheetValues(ctx context.Context, sheet string) ([][]string, error) {
	sheet, err := s.sheetName(sheet)
	if err != nil {
		return nil, err
	}
	g, err := s.load(ctx, sheet)
	if err != nil {
		return nil, err
	}
	return g.rows, nil
}

// UpdateScore applies a score to the user's cell for a date, creating the date row when needed.
func (s *Service) UpdateScore(ctx context.Context, in UpdateInput) (*ScoreResult, error) {
	sheet, err := s.sheetName(in.Sheet)
	if err != nil {
		return nil, err
	}
	date, err := validateDate(in.Date)
	if err != nil {
		return nil, err
	}
	user, err := validateUser(in.UserName)
	if err != nil {
		return nil, err
	}
	if err := validateAmount("score", in.Score); err != nil {
		return nil, err
	}
	op, err := ParseOperation(string(in.Operation))
	if err != nil {
		return nil, err
	}
	if err := s.checkKnownUser(ctx, sheet, user); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, lockKey(sheet))
	if err != nil {
		return nil, fmt.Errorf("lock sheet %s: %w", sheet, err)
	}
	result, err := s.applyScore(ctx, sheet, date, user, op, in.Score)
	unlock()
	if err != nil {
		return nil, err
	}

	occurredAt := s.now().UTC()
	observability.RecordScoreWritten(occurredAt)
	s.publish(ctx, events.TypeScoreUpdated, eventKey(sheet, result.UserName), events.ScoreUpdated{
		Sheet:      sheet,
		Date:       date,
		UserName:   result.UserName,
		Operation:  string(op),
		Previous:   result.Previous,
		Score:      result.Score,
		Total:      result.Total,
		CreatedRow: result.CreatedRow,
		OccurredAt: occurredAt,
	})
	return result, nil
}

// applyScore is the read-modify-write half of UpdateScore. Callers hold the sheet lock.
func (s *Service) applyScore(ctx context.Context, sheet, date, user string, op Operation, amount float64) (*ScoreResult, error) {
	g, err := s.load(ctx, sheet)
	if err != nil {
		return nil, err
	}
	col := g.userColumn(user)
	if col < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, user)
	}

	row := g.dateRow(date)
	created := false
	if row < 0 {
		row = g.nextRow()
		if err := s.write(ctx, sheet, sheets.Cell{Row: row, Col: 0}, date); err != nil {
			return nil, err
		}
		g.set(row, 0, date)
		created = true
	}

	previous := g.number(row, col)
	score := op.apply(previous, amount)
	if err := s.write(ctx, sheet, sheets.Cell{Row: row, Col: col}, formatScore(score)); err != nil {
		return nil, err
	}
	g.set(row, col, formatScore(score))

	return &ScoreResult{
		Sheet:      sheet,
		Date:       date,
		UserName:   strings.TrimSpace(g.header()[col]),
		Operation:  op,
		Previous:   previous,
		Score:      score,
		Total:      g.total(col),
		Row:        row + 1,
		Column:     sheets.ColumnName(col),
		CreatedRow: created,
	}, nil
}

// DeleteScore reduces the user's cell for a date by Amount, or clears it when Amount is nil.
func (s *Service) DeleteScore(ctx context.Context, in DeleteInput) (*ScoreResult, error) {
	sheet, err := s.sheetName(in.Sheet)
	if err != nil {
		return nil, err
	}
	date, err := validateDate(in.Date)
	if err != nil {
		return nil, err
	}
	user, err := validateUser(in.UserName)
	if err != nil {
		return nil, err
	}
	if in.Amount != nil {
		if err := validateAmount("userData", *in.Amount); err != nil {
			return nil, err
		}
	}
	if err := s.checkKnownUser(ctx, sheet, user); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, lockKey(sheet))
	if err != nil {
		return nil, fmt.Errorf("lock sheet %s: %w", sheet, err)
	}
	result, err := s.applyDelete(ctx, sheet, date, user, in.Amount)
	unlock()
	if err != nil {
		return nil, err
	}

	occurredAt := s.now().UTC()
	observability.RecordScoreWritten(occurredAt)
	s.publish(ctx, events.TypeScoreDeleted, eventKey(sheet, result.UserName), events.ScoreDeleted{
		Sheet:      sheet,
		Date:       date,
		UserName:   result.UserName,
		Previous:   result.Previous,
		Score:      result.Score,
		Cleared:    result.Cleared,
		OccurredAt: occurredAt,
	})
	return result, nil
}

// applyDelete is the read-modify-write half of DeleteScore. Callers hold the sheet lock.
func (s *Service) applyDelete(ctx context.Context, sheet, date, user string, amount *float64) (*ScoreResult, error) {
	g, err := s.load(ctx, sheet)
	if err != nil {
		return nil, err
	}
	col := g.userColumn(user)
	if col < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, user)
	}
	row := g.dateRow(date)
	if row < 0 {
		return nil, fmt.Errorf("%w: %s", ErrDateNotFound, date)
	}

	previous := g.number(row, col)
	cell := sheets.Cell{Row: row, Col: col}
	result := &ScoreResult{
		Sheet:    sheet,
		Date:     date,
		UserName: strings.TrimSpace(g.header()[col]),
		Previous: previous,
		Row:      row + 1,
		Column:   sheets.ColumnName(col),
	}

	if amount == nil {
		if err := s.clear(ctx, sheet, cell); err != nil {
			return nil, err
		}
		g.set(row, col, "")
		result.Operation = OperationClear
		result.Cleared = true
	} else {
		score := OperationSubtract.apply(previous, *amount)
		if err := s.write(ctx, sheet, cell, formatScore(score)); err != nil {
			return nil, err
		}
		g.set(row, col, formatScore(score))
		result.Operation = OperationSubtract
		result.Score = score
	}
	result.Total = g.total(col)
	return result, nil
}

// Users summarises every header user of a worksheet.
func (s *Service) Users(ctx context.Context, sheet string) ([]UserSummary, error) {
	sheet, err := s.sheetName(sheet)
	if err != nil {
		return nil, err
	}
	g, err := s.load(ctx, sheet)
	if err != nil {
		return nil, err
	}

	header := g.header()
	out := make([]UserSummary, 0, len(header))
	for col := 1; col < len(header); col++ {
		name := strings.TrimSpace(header[col])
		if name == "" {
			continue
		}
		summary := UserSummary{Name: name}
		for _, day := range g.scores(col) {
			summary.Total += day.Score
			summary.Days++
			if day.Score > summary.Best {
				summary.Best = day.Score
			}
			if day.Date > summary.LastDate {
				summary.LastDate = day.Date
			}
		}
		out = append(out, summary)
	}
	return out, nil
}

// User returns one user's scores in date order.
func (s *Service) User(ctx context.Context, sheet, name string) (*UserDetail, error) {
	sheet, err := s.sheetName(sheet)
	if err != nil {
		return nil, err
	}
	user, err := validateUser(name)
	if err != nil {
		return nil, err
	}
	g, err := s.load(ctx, sheet)
	if err != nil {
		return nil, err
	}
	col := g.userColumn(user)
	if col < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, user)
	}

	entries := g.scores(col)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Date < entries[j].Date })
	detail := &UserDetail{
		Name:    strings.TrimSpace(g.header()[col]),
		Sheet:   sheet,
		Entries: entries,
	}
	if detail.Entries == nil {
		detail.Entries = []DayScore{}
	}
	for _, e := range entries {
		detail.Total += e.Score
	}
	return detail, nil
}

// UserNames lists the header users, served from the cache when possible.
func (s *Service) UserNames(ctx context.Context, sheet string) ([]string, error) {
	sheet, err := s.sheetName(sheet)
	if err != nil {
		return nil, err
	}
	if users, ok := s.cachedUsers(ctx, sheet); ok {
		return users, nil
	}
	g, err := s.load(ctx, sheet)
	if err != nil {
		return nil, err
	}
	return g.users(), nil
}

// checkKnownUser fails fast for users absent from the cached header. A miss drops the cache entry
// so a user added to the sheet since the last read is found on the next request.
func (s *Service) checkKnownUser(ctx context.Context, sheet, user string) error {
	users, ok := s.cachedUsers(ctx, sheet)
	if !ok {
		g, err := s.load(ctx, sheet)
		if err != nil {
			return err
		}
		users = g.users()
	}
	for _, u := range users {
		if strings.EqualFold(u, user) {
			return nil
		}
	}
	if ok && s.users != nil {
		if err := s.users.Invalidate(ctx, sheet); err != nil {
			s.logger.Warn("user cache invalidate failed", zap.String("sheet", sheet), zap.Error(err))
		}
	}
	return fmt.Errorf("%w: %s", ErrUserNotFound, user)
}

func (s *Service) cachedUsers(ctx context.Context, sheet string) ([]string, bool) {
	if s.users == nil {
		return nil, false
	}
	users, ok, err := s.users.Get(ctx, sheet)
	if err != nil {
		s.logger.Warn("user cache read failed", zap.String("sheet", sheet), zap.Error(err))
		return nil, false
	}
	return users, ok
}

// load reads the worksheet and refreshes the user cache from its header.
func (s *Service) load(ctx context.Context, sheet string) (*grid, error) {
	start := time.Now()
	values, err := s.client.Values(ctx, sheet)
	observability.ObserveSheetCall("get", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	g := &grid{rows: values}
	if s.users != nil {
		if err := s.users.Set(ctx, sheet, g.users()); err != nil {
			s.logger.Warn("user cache write failed", zap.String("sheet", sheet), zap.Error(err))
		}
	}
	return g, nil
}

func (s *Service) write(ctx context.Context, sheet string, cell sheets.Cell, value string) error {
	start := time.Now()
	err := s.client.WriteRow(ctx, sheet, cell, []string{value})
	observability.ObserveSheetCall("update", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("write %s!%s: %w", sheet, cell.A1(), err)
	}
	return nil
}

func (s *Service) clear(ctx context.Context, sheet string, cell sheets.Cell) error {
	start := time.Now()
	err := s.client.Clear(ctx, sheet, cell)
	observability.ObserveSheetCall("clear", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("clear %s!%s: %w", sheet, cell.A1(), err)
	}
	return nil
}

// publish runs after the sheet lock is released. It detaches from the request context so a
// cancelled request still emits its event, and gives up after publishTimeout.
func (s *Service) publish(ctx context.Context, eventType, key string, payload any) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, eventType, key, payload); err != nil {
		s.logger.Warn("score event publish failed",
			zap.String("event_type", eventType),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

func lockKey(sheet string) string {
	return "sheet:" + sheet
}

func eventKey(sheet, user string) string {
	return sheet + "/" + strings.ToLower(user)
}

// IsNotFound reports whether err maps to a missing sheet, user or date.
func IsNotFound(err error) bool {
	return errors.Is(err, sheets.ErrSheetNotFound) || errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrDateNotFound)
}
