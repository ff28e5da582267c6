package ai

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/domain/appointment"
	"github.com/hms/hms/pkg/apperror"
	"github.com/hms/hms/pkg/pagination"
)

type mockApptRepo struct {
	mu            sync.Mutex
	items         map[uuid.UUID]*appointment.Appointment
	failPositions map[uuid.UUID]error
	positionCalls int
}

func newMockApptRepo() *mockApptRepo {
	return &mockApptRepo{
		items:         make(map[uuid.UUID]*appointment.Appointment),
		failPositions: make(map[uuid.UUID]error),
	}
}

func (m *mockApptRepo) add(a *appointment.Appointment) *appointment.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	m.items[a.ID] = a
	return a
}

func (m *mockApptRepo) Create(_ context.Context, a *appointment.Appointment) error {
	m.add(a)
	return nil
}

func (m *mockApptRepo) GetByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id], nil
}

func (m *mockApptRepo) Update(_ context.Context, a *appointment.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[a.ID] = a
	return nil
}

func (m *mockApptRepo) List(_ context.Context, _ appointment.Filter, _ pagination.Params) ([]*appointment.Appointment, int, error) {
	return nil, 0, nil
}

func (m *mockApptRepo) ListForDate(_ context.Context, day time.Time, doctorID *uuid.UUID) ([]*appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := day.AddDate(0, 0, 1)
	var out []*appointment.Appointment
	for _, a := range m.items {
		if a.Status != appointment.StatusScheduled && a.Status != appointment.StatusConfirmed {
			continue
		}
		if a.AppointmentDate.Before(day) || !a.AppointmentDate.Before(next) {
			continue
		}
		if doctorID != nil && a.DoctorID != *doctorID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppointmentDate.Before(out[j].AppointmentDate) })
	return out, nil
}

func (m *mockApptRepo) CountOverlapping(_ context.Context, doctorID uuid.UUID, start, end time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, a := range m.items {
		if a.DoctorID != doctorID || !a.Status.Blocking() {
			continue
		}
		if a.AppointmentDate.Before(end) && a.End().After(start) {
			count++
		}
	}
	return count, nil
}

func (m *mockApptRepo) SetQueuePosition(_ context.Context, id uuid.UUID, position int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positionCalls++
	if err := m.failPositions[id]; err != nil {
		return err
	}
	if a, ok := m.items[id]; ok {
		pos := position
		a.QueuePosition = &pos
	}
	return nil
}

func (m *mockApptRepo) PatientHistory(_ context.Context, patientID uuid.UUID) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total, noShows := 0, 0
	for _, a := range m.items {
		if a.PatientID != patientID {
			continue
		}
		total++
		if a.Status == appointment.StatusNoShow {
			noShows++
		}
	}
	return total, noShows, nil
}

func newTestAIService() (*Service, *mockApptRepo) {
	repo := newMockApptRepo()
	return NewService(repo, zerolog.Nop()), repo
}

var day = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

func scheduled(at time.Time, priority string) *appointment.Appointment {
	return &appointment.Appointment{
		PatientID:       uuid.New(),
		DoctorID:        uuid.New(),
		AppointmentDate: at,
		AppointmentType: "CONSULTATION",
		Priority:        priority,
		DurationMinutes: 30,
		Status:          appointment.StatusScheduled,
	}
}

func f64(v float64) *float64 { return &v }

func TestOptimizeQueue_ScoresAndReorders(t *testing.T) {
	svc, repo := newTestAIService()

	// X: LOW with no-show 0.8 -> 1.0 + 0.2*0.5 = 1.1
	x := scheduled(day.Add(9*time.Hour), "LOW")
	x.NoShowProbability = f64(0.8)
	repo.add(x)

	// Y: HIGH with ai score 0.9 -> 3.0 + 1.8 = 4.8
	y := scheduled(day.Add(10*time.Hour), "HIGH")
	y.AIPriorityScore = f64(0.9)
	repo.add(y)

	result, err := svc.OptimizeQueue(context.Background(), OptimizeInput{Date: day})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.TotalAppointments != 2 {
		t.Fatalf("expected 2 appointments, got %d", result.TotalAppointments)
	}
	if result.OptimizedQueue[0].AppointmentID != y.ID {
		t.Errorf("expected Y first")
	}
	if result.OptimizedQueue[0].PriorityScore != 4.8 {
		t.Errorf("expected Y score 4.8, got %v", result.OptimizedQueue[0].PriorityScore)
	}
	if result.OptimizedQueue[1].PriorityScore != 1.1 {
		t.Errorf("expected X score 1.1, got %v", result.OptimizedQueue[1].PriorityScore)
	}
	if result.ChangesMade != 2 {
		t.Errorf("expected 2 changes, got %d", result.ChangesMade)
	}
	if *y.QueuePosition != 1 || *x.QueuePosition != 2 {
		t.Errorf("expected positions persisted, got Y=%v X=%v", y.QueuePosition, x.QueuePosition)
	}
}

func TestOptimizeQueue_StableForEqualScores(t *testing.T) {
	svc, repo := newTestAIService()
	first := repo.add(scheduled(day.Add(9*time.Hour), "MEDIUM"))
	second := repo.add(scheduled(day.Add(10*time.Hour), "MEDIUM"))
	third := repo.add(scheduled(day.Add(11*time.Hour), "MEDIUM"))

	result, err := svc.OptimizeQueue(context.Background(), OptimizeInput{Date: day})
	if err != nil {
		t.Fatal(err)
	}
	want := []uuid.UUID{first.ID, second.ID, third.ID}
	for i, id := range want {
		if result.OptimizedQueue[i].AppointmentID != id {
			t.Errorf("position %d: equal scores must keep appointment-time order", i+1)
		}
	}
}

func TestOptimizeQueue_Idempotent(t *testing.T) {
	svc, repo := newTestAIService()
	repo.add(scheduled(day.Add(9*time.Hour), "HIGH"))
	repo.add(scheduled(day.Add(10*time.Hour), "LOW"))

	if _, err := svc.OptimizeQueue(context.Background(), OptimizeInput{Date: day}); err != nil {
		t.Fatal(err)
	}
	second, err := svc.OptimizeQueue(context.Background(), OptimizeInput{Date: day})
	if err != nil {
		t.Fatal(err)
	}
	if second.ChangesMade != 0 {
		t.Errorf("expected no changes on second pass, got %d", second.ChangesMade)
	}
	if second.EfficiencyScore != 1.0 {
		t.Errorf("expected efficiency 1.0, got %v", second.EfficiencyScore)
	}
}

func TestOptimizeQueue_EfficiencyBounds(t *testing.T) {
	svc, repo := newTestAIService()
	for i := 0; i < 4; i++ {
		repo.add(scheduled(day.Add(time.Duration(9+i)*time.Hour), "MEDIUM"))
	}
	result, err := svc.OptimizeQueue(context.Background(), OptimizeInput{Date: day})
	if err != nil {
		t.Fatal(err)
	}
	if result.EfficiencyScore < 0 || result.EfficiencyScore > 1 {
		t.Errorf("efficiency out of [0,1]: %v", result.EfficiencyScore)
	}
}

func TestOptimizeQueue_EmptyDay(t *testing.T) {
	svc, _ := newTestAIService()
	result, err := svc.OptimizeQueue(context.Background(), OptimizeInput{Date: day})
	if err != nil {
		t.Fatal(err)
	}
	if result.TotalAppointments != 0 {
		t.Errorf("expected empty result, got %d", result.TotalAppointments)
	}
	if result.EfficiencyScore != 0 {
		t.Errorf("expected efficiency 0 for empty input, got %v", result.EfficiencyScore)
	}
	if result.ChangesMade != 0 {
		t.Errorf("expected no changes, got %d", result.ChangesMade)
	}
}

func TestOptimizeQueue_FailedWriteDoesNotAbort(t *testing.T) {
	svc, repo := newTestAIService()
	broken := repo.add(scheduled(day.Add(9*time.Hour), "HIGH"))
	repo.add(scheduled(day.Add(10*time.Hour), "LOW"))
	repo.failPositions[broken.ID] = errors.New("row locked")

	result, err := svc.OptimizeQueue(context.Background(), OptimizeInput{Date: day})
	if err != nil {
		t.Fatalf("expected pass to survive a failed write, got %v", err)
	}
	if result.TotalAppointments != 2 {
		t.Errorf("expected both appointments processed, got %d", result.TotalAppointments)
	}
	if repo.positionCalls != 2 {
		t.Errorf("expected both writes attempted, got %d", repo.positionCalls)
	}
}

func TestOptimizeQueue_DoctorFilter(t *testing.T) {
	svc, repo := newTestAIService()
	mine := repo.add(scheduled(day.Add(9*time.Hour), "MEDIUM"))
	repo.add(scheduled(day.Add(10*time.Hour), "MEDIUM"))

	result, err := svc.OptimizeQueue(context.Background(), OptimizeInput{Date: day, DoctorID: &mine.DoctorID})
	if err != nil {
		t.Fatal(err)
	}
	if result.TotalAppointments != 1 {
		t.Errorf("expected doctor filter to narrow to 1, got %d", result.TotalAppointments)
	}
}

func TestOptimizeQueue_RequiresDate(t *testing.T) {
	svc, _ := newTestAIService()
	_, err := svc.OptimizeQueue(context.Background(), OptimizeInput{})
	if apperror.KindOf(err) != apperror.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestPredictNoShow_EnrichesAndPersists(t *testing.T) {
	svc, repo := newTestAIService()
	svc.noShow.jitter = func() float64 { return 0 }

	patient := uuid.New()
	// Two past no-shows out of two appointments.
	for i := 0; i < 2; i++ {
		past := scheduled(day.Add(time.Duration(-24*(i+1))*time.Hour), "MEDIUM")
		past.PatientID = patient
		past.Status = appointment.StatusNoShow
		repo.add(past)
	}
	target := scheduled(day.Add(9*time.Hour), "MEDIUM")
	target.PatientID = patient
	repo.add(target)

	prediction, err := svc.PredictNoShow(context.Background(), NoShowRequest{AppointmentID: &target.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// history rate 2/3 * 0.7 = 0.47 after rounding
	if prediction.NoShowProbability != 0.47 {
		t.Errorf("expected 0.47, got %v", prediction.NoShowProbability)
	}
	if target.NoShowProbability == nil || *target.NoShowProbability != prediction.NoShowProbability {
		t.Errorf("expected probability persisted on appointment")
	}
}

func TestPredictNoShow_UnknownAppointment(t *testing.T) {
	svc, _ := newTestAIService()
	id := uuid.New()
	_, err := svc.PredictNoShow(context.Background(), NoShowRequest{AppointmentID: &id})
	if apperror.KindOf(err) != apperror.KindNotFound {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestEstimateWaitTime_DerivesQueueLengthAndPersists(t *testing.T) {
	svc, repo := newTestAIService()
	doctor := uuid.New()
	for i := 0; i < 3; i++ {
		a := scheduled(day.Add(time.Duration(9+i)*time.Hour), "MEDIUM")
		a.DoctorID = doctor
		repo.add(a)
	}
	target := scheduled(day.Add(13*time.Hour), "MEDIUM")
	target.DoctorID = doctor
	repo.add(target)

	estimate, err := svc.EstimateWaitTime(context.Background(), WaitTimeRequest{AppointmentID: &target.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The whole day including the target itself is the queue.
	if estimate.QueuePosition != 5 {
		t.Errorf("expected position 5, got %d", estimate.QueuePosition)
	}
	if target.EstimatedWaitTime == nil || *target.EstimatedWaitTime != estimate.EstimatedWaitTime {
		t.Errorf("expected estimate persisted on appointment")
	}
	if target.QueuePosition == nil || *target.QueuePosition != estimate.QueuePosition {
		t.Errorf("expected queue position persisted on appointment")
	}
}

func TestEstimateWaitTime_ExplicitQueueLength(t *testing.T) {
	svc, _ := newTestAIService()
	length := 2
	estimate, err := svc.EstimateWaitTime(context.Background(), WaitTimeRequest{
		DoctorID:        uuid.New(),
		AppointmentDate: day.Add(9 * time.Hour),
		QueueLength:     &length,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if estimate.QueuePosition != 3 {
		t.Errorf("expected position 3, got %d", estimate.QueuePosition)
	}
}

func TestClassifyPriority_PersistsScoreAndLevel(t *testing.T) {
	svc, repo := newTestAIService()
	target := repo.add(scheduled(day.Add(9*time.Hour), "MEDIUM"))

	classification, err := svc.ClassifyPriority(context.Background(), ClassifyRequest{
		AppointmentID: &target.ID,
		ClassifyInput: ClassifyInput{ChiefComplaint: "chest pain radiating to the arm"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if classification.PriorityLevel != "EMERGENCY" {
		t.Errorf("expected EMERGENCY, got %s", classification.PriorityLevel)
	}
	if target.Priority != "EMERGENCY" {
		t.Errorf("expected priority persisted, got %s", target.Priority)
	}
	if target.AIPriorityScore == nil || *target.AIPriorityScore != classification.PriorityScore {
		t.Errorf("expected score persisted")
	}
}

func TestClassifyPriority_RequiresComplaint(t *testing.T) {
	svc, _ := newTestAIService()
	_, err := svc.ClassifyPriority(context.Background(), ClassifyRequest{})
	if apperror.KindOf(err) != apperror.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestBatchPredict_CollectsFailures(t *testing.T) {
	svc, repo := newTestAIService()
	svc.noShow.jitter = func() float64 { return 0 }

	known := repo.add(scheduled(day.Add(9*time.Hour), "MEDIUM"))
	missing := uuid.New()

	result, err := svc.BatchPredict(context.Background(), BatchRequest{
		AppointmentIDs: []uuid.UUID{known.ID, missing},
		PredictionType: PredictionNoShow,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalProcessed != 1 {
		t.Errorf("expected 1 processed, got %d", result.TotalProcessed)
	}
	if len(result.FailedPredictions) != 1 || result.FailedPredictions[0] != missing {
		t.Errorf("expected the missing id collected, got %v", result.FailedPredictions)
	}
}

func TestBatchPredict_UnknownType(t *testing.T) {
	svc, _ := newTestAIService()
	_, err := svc.BatchPredict(context.Background(), BatchRequest{PredictionType: "triage"})
	if apperror.KindOf(err) != apperror.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}
