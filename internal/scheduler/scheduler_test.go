package scheduler

import (
	"strings"
	"sync"
	"testing"
	"time"

	"telegram-cycle-coach/internal/models"
	"telegram-cycle-coach/internal/storage"
)

const chatID = int64(7)

func newNotifier(t *testing.T) (*Notifier, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	err := store.UpsertUser(&models.User{
		ChatID:         chatID,
		CycleStart:     "2024-01-01",
		MorningAt:      "09:00",
		EveningAt:      "21:00",
		CoffeeTarget:   2,
		NicotineTarget: 5,
	})
	if err != nil {
		t.Fatal(err)
	}
	return NewNotifier(store, time.UTC), store
}

func at(clock string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", "2024-01-02 "+clock)
	if err != nil {
		panic(err)
	}
	return t
}

func tick(t *testing.T, n *Notifier, now time.Time) []models.Outbound {
	t.Helper()
	out, err := n.Tick(now)
	if err != nil {
		t.Fatalf("Tick(%s): %v", now, err)
	}
	return out
}

func countContaining(out []models.Outbound, substr string) int {
	c := 0
	for _, o := range out {
		if strings.Contains(o.Text, substr) {
			c++
		}
	}
	return c
}

func TestMorningFiresOncePerDay(t *testing.T) {
	n, _ := newNotifier(t)

	if out := tick(t, n, at("08:59")); len(out) != 0 {
		t.Fatalf("fired before slot time: %+v", out)
	}

	out := tick(t, n, at("09:00"))
	if countContaining(out, "Good morning") != 1 {
		t.Fatalf("morning tick = %+v", out)
	}
	if strings.Contains(out[0].Text, "Coffee") == false {
		t.Errorf("morning message misses phase: %q", out[0].Text)
	}

	// Repeated and later ticks stay silent.
	for _, clock := range []string{"09:00", "09:01", "12:00"} {
		if out := tick(t, n, at(clock)); countContaining(out, "Good morning") != 0 {
			t.Fatalf("morning refired at %s", clock)
		}
	}
}

func TestConcurrentTicksFireSlotOnce(t *testing.T) {
	n, _ := newNotifier(t)
	now := at("09:00")

	var mu sync.Mutex
	var all []models.Outbound
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := n.Tick(now)
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			all = append(all, out...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if got := countContaining(all, "Good morning"); got != 1 {
		t.Errorf("morning fired %d times under concurrent ticks", got)
	}
}

func TestEveningOpensLogDialogue(t *testing.T) {
	n, store := newNotifier(t)

	out := tick(t, n, at("21:00"))
	if countContaining(out, "How many units") != 1 {
		t.Fatalf("evening tick = %+v", out)
	}
	conv, _ := store.GetConversation(chatID)
	if conv == nil || conv.Step != models.StepAwaitLog {
		t.Errorf("conversation = %+v, want awaiting log value", conv)
	}
}

func TestNudgeOnlyWhenUnlogged(t *testing.T) {
	n, store := newNotifier(t)
	tick(t, n, at("21:00")) // consume the evening slot

	// Logged day: no nudge.
	err := store.UpsertDailyLog(models.DailyLog{ChatID: chatID, Day: "2024-01-02", Phase: models.PhaseCoffee, Units: 2})
	if err != nil {
		t.Fatal(err)
	}
	if out := tick(t, n, at("22:00")); len(out) != 0 {
		t.Fatalf("nudged a logged day: %+v", out)
	}
}

func TestNudgeFiresOnceWhenUnlogged(t *testing.T) {
	n, _ := newNotifier(t)
	tick(t, n, at("21:00"))

	out := tick(t, n, at("22:00"))
	if countContaining(out, "Still waiting") != 1 {
		t.Fatalf("nudge tick = %+v", out)
	}
	if out := tick(t, n, at("22:05")); len(out) != 0 {
		t.Fatalf("nudge refired: %+v", out)
	}
}

func TestAutoLogClosesUnansweredDay(t *testing.T) {
	n, store := newNotifier(t)
	tick(t, n, at("21:00")) // evening slot opened the dialogue
	tick(t, n, at("22:00")) // nudge

	out := tick(t, n, at("23:55"))
	if countContaining(out, "no data") != 1 {
		t.Fatalf("autolog tick = %+v", out)
	}

	l, _ := store.GetDailyLog(chatID, "2024-01-02")
	if l == nil || l.Logged() {
		t.Fatalf("sentinel entry = %+v", l)
	}
	if l.Phase != models.PhaseCoffee {
		t.Errorf("sentinel phase = %s", l.Phase)
	}
	if conv, _ := store.GetConversation(chatID); conv != nil {
		t.Errorf("dangling dialogue survived autolog: %+v", conv)
	}

	if out := tick(t, n, at("23:59")); len(out) != 0 {
		t.Fatalf("autolog refired: %+v", out)
	}
}

func TestAutoLogSkipsLoggedDay(t *testing.T) {
	n, store := newNotifier(t)
	err := store.UpsertDailyLog(models.DailyLog{ChatID: chatID, Day: "2024-01-02", Phase: models.PhaseCoffee, Units: 1})
	if err != nil {
		t.Fatal(err)
	}
	tick(t, n, at("21:00"))

	if out := tick(t, n, at("23:55")); len(out) != 0 {
		t.Fatalf("autolog fired despite log: %+v", out)
	}
	l, _ := store.GetDailyLog(chatID, "2024-01-02")
	if l.Units != 1 {
		t.Errorf("autolog overwrote the entry: %+v", l)
	}
}

func TestAutoLogKeepsUnrelatedDialogue(t *testing.T) {
	n, store := newNotifier(t)
	err := store.SetConversation(models.Conversation{ChatID: chatID, Step: models.StepAwaitCoffee})
	if err != nil {
		t.Fatal(err)
	}
	// Burn the earlier slots so only auto-log fires on this tick.
	for _, slot := range []models.Slot{models.SlotMorning, models.SlotEvening, models.SlotNudge} {
		if _, err := store.ClaimSlot(chatID, "2024-01-02", slot); err != nil {
			t.Fatal(err)
		}
	}

	tick(t, n, at("23:55"))

	conv, _ := store.GetConversation(chatID)
	if conv == nil || conv.Step != models.StepAwaitCoffee {
		t.Errorf("autolog clobbered an unrelated dialogue: %+v", conv)
	}
}

func TestPausedUserGetsNothing(t *testing.T) {
	n, store := newNotifier(t)
	if err := store.PauseUser(chatID, "2024-01-01"); err != nil {
		t.Fatal(err)
	}

	for _, clock := range []string{"09:00", "21:00", "22:00", "23:55"} {
		if out := tick(t, n, at(clock)); len(out) != 0 {
			t.Fatalf("paused user notified at %s: %+v", clock, out)
		}
	}
}

func TestLateStartCatchesUpDueSlots(t *testing.T) {
	n, _ := newNotifier(t)

	// First tick of the day at 22:30: morning, evening and nudge are all
	// due; auto-log is not.
	out := tick(t, n, at("22:30"))
	if got := len(out); got != 3 {
		t.Fatalf("catch-up fired %d slots, want 3: %+v", got, out)
	}
	if countContaining(out, "Good morning") != 1 ||
		countContaining(out, "How many units") != 1 ||
		countContaining(out, "Still waiting") != 1 {
		t.Errorf("catch-up slots wrong: %+v", out)
	}
}
