package metrics

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/models"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("failed to read metrics: %v", err)
	}
	return string(body)
}

func assertLines(t *testing.T, body string, lines ...string) {
	t.Helper()
	for _, line := range lines {
		if !strings.Contains(body, line+"\n") {
			t.Errorf("metrics output missing %q", line)
		}
	}
}

func TestObserver(t *testing.T) {
	m := New()

	m.ContributionDecided(models.TypeGrocery, models.ContributionVerified)
	m.ContributionDecided(models.TypeGrocery, models.ContributionVerified)
	m.ContributionDecided(models.TypeGrocery, models.ContributionRejected)

	m.PayoutsProcessed(models.TypeBurial, models.ShapeEqualShare, []*models.Payout{
		{Kind: models.PayoutEqualShare, Amount: decimal.RequireFromString("30.5")},
		{Kind: models.PayoutEqualShare, Amount: decimal.RequireFromString("30.25")},
		{Kind: models.PayoutEqualShare, Amount: decimal.RequireFromString("30.25")},
	})
	m.CycleSettled(models.TypeVehicle, nil)

	assertLines(t, scrape(t, m),
		`stokvel_contributions_decided_total{status="verified",type="grocery"} 2`,
		`stokvel_contributions_decided_total{status="rejected",type="grocery"} 1`,
		`stokvel_payouts_total{kind="equal_share",shape="equal_share",type="burial"} 3`,
		`stokvel_disbursed_amount_total{type="burial"} 91`,
		`stokvel_settlements_total{type="vehicle"} 1`,
	)
}

func TestEngineError(t *testing.T) {
	m := New()

	m.EngineError(nil)
	m.EngineError(fmt.Errorf("%w: cycle 3", models.ErrNotReady))
	m.EngineError(errors.New("disk on fire"))

	body := scrape(t, m)
	assertLines(t, body,
		`stokvel_engine_errors_total{kind="not_ready"} 1`,
		`stokvel_engine_errors_total{kind="internal"} 1`,
	)
	if strings.Contains(body, `kind="none"`) {
		t.Error("nil error was counted")
	}
}

func TestObserveRPC(t *testing.T) {
	m := New()
	m.ObserveRPC("/stokvel.v1.StokvelService/ProcessPayout", "ok", 25*time.Millisecond)

	assertLines(t, scrape(t, m),
		`stokvel_rpc_duration_seconds_count{code="ok",procedure="/stokvel.v1.StokvelService/ProcessPayout"} 1`,
	)
}
