package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/tournament-brackets/brackets"
	"github.com/Dosada05/tournament-brackets/models"
	"github.com/Dosada05/tournament-brackets/repositories"
	"github.com/Dosada05/tournament-brackets/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(v int) *int { return &v }

// fakeStore is an in-memory database shared by the fake repositories.
// Transactions are serialized and restore a snapshot when they fail.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users        map[int]models.User
	tournaments  map[int]models.Tournament
	participants map[int]models.Participant
	matches      map[int]models.Match
	nextID       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:        map[int]models.User{},
		tournaments:  map[int]models.Tournament{},
		participants: map[int]models.Participant{},
		matches:      map[int]models.Match{},
	}
}

func (s *fakeStore) id() int {
	s.nextID++
	return s.nextID
}

type fakeSnapshot struct {
	users        map[int]models.User
	tournaments  map[int]models.Tournament
	participants map[int]models.Participant
	matches      map[int]models.Match
	nextID       int
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *fakeStore) snapshot() fakeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fakeSnapshot{
		users:        copyMap(s.users),
		tournaments:  copyMap(s.tournaments),
		participants: copyMap(s.participants),
		matches:      copyMap(s.matches),
		nextID:       s.nextID,
	}
}

func (s *fakeStore) restore(snap fakeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.tournaments = snap.tournaments
	s.participants = snap.participants
	s.matches = snap.matches
	s.nextID = snap.nextID
}

// fakeExec stands in for *sql.Tx. The fake repositories never touch it.
type fakeExec struct{}

func (fakeExec) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	panic("fakeExec: unexpected ExecContext")
}
func (fakeExec) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	panic("fakeExec: unexpected QueryContext")
}
func (fakeExec) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	panic("fakeExec: unexpected QueryRowContext")
}

type fakeTransactor struct {
	store *fakeStore
	// commits counts successful transactions.
	commits int
}

func (t *fakeTransactor) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) (err error) {
	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snap := t.store.snapshot()
	defer func() {
		if p := recover(); p != nil {
			t.store.restore(snap)
			panic(p)
		}
		if err != nil {
			t.store.restore(snap)
			return
		}
		t.commits++
	}()
	return fn(fakeExec{})
}

var errNeedsTx = errors.New("operation requires a transaction")

// --- users ---

type fakeUserRepo struct{ st *fakeStore }

func (r *fakeUserRepo) Create(_ context.Context, u *models.User) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, existing := range r.st.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repositories.ErrUserEmailConflict
		}
	}
	u.ID = r.st.id()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	r.st.users[u.ID] = *u
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	u, ok := r.st.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return &u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, u := range r.st.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) Activate(_ context.Context, id int, confirmedAt time.Time) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	u, ok := r.st.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.IsActive = true
	u.ConfirmedAt = &confirmedAt
	r.st.users[id] = u
	return nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id int, hash string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	u, ok := r.st.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.PasswordHash = hash
	r.st.users[id] = u
	return nil
}

// --- tournaments ---

type fakeTournamentRepo struct{ st *fakeStore }

func (r *fakeTournamentRepo) Create(_ context.Context, t *models.Tournament) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.users[t.OrganizerID]; !ok {
		return repositories.ErrTournamentInvalidOrg
	}
	t.ID = r.st.id()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	r.st.tournaments[t.ID] = *t
	return nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	t, ok := r.st.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return &t, nil
}

func (r *fakeTournamentRepo) LockForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	if exec == nil {
		return nil, errNeedsTx
	}
	return r.GetByID(ctx, id)
}

func (r *fakeTournamentRepo) List(_ context.Context, f repositories.ListTournamentsFilter) ([]models.Tournament, int, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var all []models.Tournament
	for _, t := range r.st.tournaments {
		if f.UpcomingAt != nil && t.StartAt.Before(*f.UpcomingAt) {
			continue
		}
		if f.OrganizerID != nil && t.OrganizerID != *f.OrganizerID {
			continue
		}
		if f.Search != "" {
			q := strings.ToLower(f.Search)
			desc := ""
			if t.Description != nil {
				desc = *t.Description
			}
			if !strings.Contains(strings.ToLower(t.Name+" "+string(t.Discipline)+" "+desc), q) {
				continue
			}
		}
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].StartAt.Equal(all[j].StartAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].StartAt.Before(all[j].StartAt)
	})
	total := len(all)
	start := f.Offset
	if start > total {
		start = total
	}
	end := total
	if f.Limit > 0 && start+f.Limit < end {
		end = start + f.Limit
	}
	return append([]models.Tournament{}, all[start:end]...), total, nil
}

func (r *fakeTournamentRepo) Update(_ context.Context, t *models.Tournament) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.tournaments[t.ID]; !ok {
		return repositories.ErrTournamentNotFound
	}
	t.UpdatedAt = time.Now()
	r.st.tournaments[t.ID] = *t
	return nil
}

func (r *fakeTournamentRepo) Delete(_ context.Context, id int) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.st.tournaments, id)
	for pid, p := range r.st.participants {
		if p.TournamentID == id {
			delete(r.st.participants, pid)
		}
	}
	for mid, m := range r.st.matches {
		if m.TournamentID == id {
			delete(r.st.matches, mid)
		}
	}
	return nil
}

func (r *fakeTournamentRepo) UpdateLogoKey(_ context.Context, id int, key *string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	t, ok := r.st.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.LogoKey = key
	r.st.tournaments[id] = t
	return nil
}

func (r *fakeTournamentRepo) ListByParticipantUser(_ context.Context, userID int) ([]models.Tournament, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	out := make([]models.Tournament, 0)
	for _, p := range r.st.participants {
		if p.UserID == userID {
			out = append(out, r.st.tournaments[p.TournamentID])
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartAt.Equal(out[j].StartAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartAt.Before(out[j].StartAt)
	})
	return out, nil
}

func (r *fakeTournamentRepo) ListAwaitingBracket(_ context.Context, now time.Time) ([]int, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var ids []int
	for _, t := range r.st.tournaments {
		if t.SignupDeadline.After(now) || t.Status == models.StatusCanceled {
			continue
		}
		entrants, generated := 0, false
		for _, p := range r.st.participants {
			if p.TournamentID == t.ID {
				entrants++
			}
		}
		for _, m := range r.st.matches {
			if m.TournamentID == t.ID && m.RoundNumber == 1 {
				generated = true
			}
		}
		if !generated && entrants >= 2 {
			ids = append(ids, t.ID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

// --- participants ---

type fakeParticipantRepo struct{ st *fakeStore }

func (r *fakeParticipantRepo) Create(_ context.Context, exec repositories.SQLExecutor, p *models.Participant) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.tournaments[p.TournamentID]; !ok {
		return repositories.ErrParticipantTournamentInvalid
	}
	if _, ok := r.st.users[p.UserID]; !ok {
		return repositories.ErrParticipantUserInvalid
	}
	for _, existing := range r.st.participants {
		if existing.TournamentID != p.TournamentID {
			continue
		}
		switch {
		case existing.LicenseNumber == p.LicenseNumber:
			return repositories.ErrParticipantLicenseConflict
		case existing.Ranking == p.Ranking:
			return repositories.ErrParticipantRankingConflict
		case existing.UserID == p.UserID:
			return repositories.ErrParticipantConflict
		}
	}
	p.ID = r.st.id()
	p.CreatedAt = time.Now()
	r.st.participants[p.ID] = *p
	return nil
}

func (r *fakeParticipantRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Participant, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	p, ok := r.st.participants[id]
	if !ok {
		return nil, repositories.ErrParticipantNotFound
	}
	return &p, nil
}

func (r *fakeParticipantRepo) FindByUserAndTournament(_ context.Context, userID, tournamentID int) (*models.Participant, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, p := range r.st.participants {
		if p.UserID == userID && p.TournamentID == tournamentID {
			p := p
			return &p, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (r *fakeParticipantRepo) ListRanked(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]*models.Participant, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	out := make([]*models.Participant, 0)
	for _, p := range r.st.participants {
		if p.TournamentID == tournamentID && p.Status == models.ParticipantRegistered {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ranking < out[j].Ranking })
	return out, nil
}

func (r *fakeParticipantRepo) CountByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	ps, err := r.ListRanked(ctx, exec, tournamentID)
	return len(ps), err
}

// --- matches ---

type fakeMatchRepo struct {
	st *fakeStore
	// failGetOrCreate makes advancement fail, to exercise rollback.
	failGetOrCreate error
	fillCalls       int
	listCalls       int
}

func (r *fakeMatchRepo) Create(_ context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return r.insertLocked(m)
}

func (r *fakeMatchRepo) insertLocked(m *models.Match) error {
	for _, existing := range r.st.matches {
		if existing.TournamentID == m.TournamentID && existing.RoundNumber == m.RoundNumber && existing.BracketPosition == m.BracketPosition {
			return repositories.ErrMatchSlotConflict
		}
	}
	m.ID = r.st.id()
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	r.st.matches[m.ID] = *m
	return nil
}

func (r *fakeMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	m, ok := r.st.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return &m, nil
}

func (r *fakeMatchRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	if exec == nil {
		return nil, errNeedsTx
	}
	return r.GetByID(ctx, exec, id)
}

func (r *fakeMatchRepo) CountByRound(_ context.Context, _ repositories.SQLExecutor, tournamentID, round int) (int, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	n := 0
	for _, m := range r.st.matches {
		if m.TournamentID == tournamentID && m.RoundNumber == round {
			n++
		}
	}
	return n, nil
}

func (r *fakeMatchRepo) GetOrCreate(_ context.Context, exec repositories.SQLExecutor, tournamentID, round, position int) (*models.Match, error) {
	if exec == nil {
		return nil, errNeedsTx
	}
	if r.failGetOrCreate != nil {
		return nil, r.failGetOrCreate
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, m := range r.st.matches {
		if m.TournamentID == tournamentID && m.RoundNumber == round && m.BracketPosition == position {
			m := m
			return &m, nil
		}
	}
	m := &models.Match{TournamentID: tournamentID, RoundNumber: round, BracketPosition: position}
	if err := r.insertLocked(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *fakeMatchRepo) FillSlot(_ context.Context, _ repositories.SQLExecutor, matchID int, slot brackets.Slot, participantID int) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.fillCalls++
	m, ok := r.st.matches[matchID]
	if !ok {
		return false, nil
	}
	switch slot {
	case brackets.SlotA:
		if m.PlayerAID != nil {
			return false, nil
		}
		m.PlayerAID = intPtr(participantID)
	case brackets.SlotB:
		if m.PlayerBID != nil {
			return false, nil
		}
		m.PlayerBID = intPtr(participantID)
	default:
		return false, errors.New("invalid slot")
	}
	r.st.matches[matchID] = m
	return true, nil
}

func (r *fakeMatchRepo) SaveReports(_ context.Context, _ repositories.SQLExecutor, m *models.Match) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	stored, ok := r.st.matches[m.ID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	stored.PlayerAReportedWinnerID = m.PlayerAReportedWinnerID
	stored.PlayerBReportedWinnerID = m.PlayerBReportedWinnerID
	r.st.matches[m.ID] = stored
	return nil
}

func (r *fakeMatchRepo) SetWinner(_ context.Context, _ repositories.SQLExecutor, matchID, winnerID int) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	m, ok := r.st.matches[matchID]
	if !ok || m.WinnerID != nil {
		return false, nil
	}
	m.WinnerID = intPtr(winnerID)
	r.st.matches[matchID] = m
	return true, nil
}

func (r *fakeMatchRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]*models.Match, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.listCalls++
	out := make([]*models.Match, 0)
	for _, m := range r.st.matches {
		if m.TournamentID == tournamentID {
			m := m
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RoundNumber != out[j].RoundNumber {
			return out[i].RoundNumber < out[j].RoundNumber
		}
		return out[i].BracketPosition < out[j].BracketPosition
	})
	return out, nil
}

func (r *fakeMatchRepo) MaxRound(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	matches, _ := r.ListByTournament(ctx, exec, tournamentID)
	highest := 0
	for _, m := range matches {
		if m.RoundNumber > highest {
			highest = m.RoundNumber
		}
	}
	return highest, nil
}

func (r *fakeMatchRepo) ListOpenByUser(_ context.Context, userID int) ([]models.OpenMatch, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	out := make([]models.OpenMatch, 0)
	for _, m := range r.st.matches {
		if m.WinnerID != nil || !m.HasBothPlayers() {
			continue
		}
		for _, p := range r.st.participants {
			if p.UserID != userID || p.TournamentID != m.TournamentID {
				continue
			}
			if *m.PlayerAID != p.ID && *m.PlayerBID != p.ID {
				continue
			}
			firstRound := 0
			for _, other := range r.st.matches {
				if other.TournamentID == m.TournamentID && other.RoundNumber == 1 {
					firstRound++
				}
			}
			out = append(out, models.OpenMatch{
				Match:          m,
				TournamentName: r.st.tournaments[m.TournamentID].Name,
				FirstRoundSize: firstRound,
				OwnParticipant: p.ID,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- collaborators ---

type sentMail struct {
	kind  string
	to    string
	token string
	data  MatchResultEmail
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) record(mail sentMail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, mail)
	return m.err
}

func (m *fakeMailer) SendConfirmationEmail(_ context.Context, to, token string) error {
	return m.record(sentMail{kind: "confirm", to: to, token: token})
}

func (m *fakeMailer) SendPasswordResetEmail(_ context.Context, to, token string) error {
	return m.record(sentMail{kind: "reset", to: to, token: token})
}

func (m *fakeMailer) SendMatchResultEmail(_ context.Context, to string, data MatchResultEmail) error {
	return m.record(sentMail{kind: "result", to: to, data: data})
}

func (m *fakeMailer) last(kind string) (sentMail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].kind == kind {
			return m.sent[i], true
		}
	}
	return sentMail{}, false
}

func (m *fakeMailer) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sent {
		if s.kind == kind {
			n++
		}
	}
	return n
}

type notifiedMatch struct {
	matchID int
	outcome brackets.Outcome
}

type recordingNotifier struct {
	mu        sync.Mutex
	generated []int
	updates   []notifiedMatch
}

func (n *recordingNotifier) BracketGenerated(_ context.Context, tournamentID int, _ []*models.Match) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.generated = append(n.generated, tournamentID)
}

func (n *recordingNotifier) MatchUpdated(_ context.Context, m *models.Match, outcome brackets.Outcome) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, notifiedMatch{matchID: m.ID, outcome: outcome})
}

type fakeUploader struct {
	objects map[string]string
	deleted []string
}

func (u *fakeUploader) Upload(_ context.Context, key, contentType string, r io.Reader) (*storage.UploadResult, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if u.objects == nil {
		u.objects = map[string]string{}
	}
	u.objects[key] = string(b)
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *fakeUploader) Delete(_ context.Context, key string) error {
	delete(u.objects, key)
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}
