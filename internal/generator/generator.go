package generator

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sentinelsoc/triage-engine/internal/models"
)

// Named scenarios for demos and drills.
const (
	ScenarioCredentialAttack   = "credential_attack"
	ScenarioBenignCrawler      = "benign_crawler"
	ScenarioTrafficSurge       = "traffic_surge"
	ScenarioCriticalCompromise = "critical_compromise"
)

// Scenarios lists the named scenarios.
func Scenarios() []string {
	return []string{
		ScenarioCredentialAttack,
		ScenarioBenignCrawler,
		ScenarioTrafficSurge,
		ScenarioCriticalCompromise,
	}
}

var (
	generatorCustomers = []string{"acme-corp", "globex", "initech", "umbrella", "stark-industries"}
	hostileSources     = []string{"203.0.113.15", "203.0.113.88", "198.51.100.23", "185.220.101.7"}
	neutralSources     = []string{"198.18.0.4", "192.0.2.55", "100.64.3.9"}
	suspiciousAgents   = []string{"python-requests/2.31", "Go-http-client/2.0", "curl/8.4.0"}
	browserAgents      = []string{"Mozilla/5.0 (Windows NT 10.0)", "Mozilla/5.0 (Macintosh)", "Mozilla/5.0 (X11; Linux)"}
)

// Generator produces synthetic threat signals. The same seed yields the same
// signal sequence, which the demo loop and tests rely on.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	seq int
	now func() time.Time
}

// New creates a seeded generator. now may be nil for wall-clock time.
func New(seed int64, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{
		rng: rand.New(rand.NewSource(seed)),
		now: now,
	}
}

// Random produces one plausible signal with category-appropriate attributes.
func (g *Generator) Random() models.ThreatSignal {
	g.mu.Lock()
	defer g.mu.Unlock()

	categories := models.Categories()
	category := categories[g.rng.Intn(len(categories))]

	signal := g.base(category)
	switch category {
	case models.CategoryCredentialStuffing:
		signal.SourceIP = hostileSources[g.rng.Intn(len(hostileSources))]
		signal.ClientID = suspiciousAgents[g.rng.Intn(len(suspiciousAgents))]
		signal.RequestCount = 200 + g.rng.Intn(2000)
		signal.Metadata["endpoint"] = "/api/v1/login"
		signal.Metadata["failed_logins"] = signal.RequestCount * 9 / 10
	case models.CategoryBotTraffic:
		signal.RequestCount = 50 + g.rng.Intn(500)
		signal.ClientID = suspiciousAgents[g.rng.Intn(len(suspiciousAgents))]
	case models.CategoryRateLimitBreach:
		signal.RequestCount = 1000 + g.rng.Intn(9000)
		signal.ClientID = browserAgents[g.rng.Intn(len(browserAgents))]
	case models.CategoryDeviceCompromise:
		signal.RequestCount = 1 + g.rng.Intn(50)
		signal.Metadata["device_id"] = fmt.Sprintf("dev-%06d", g.rng.Intn(1000000))
		signal.Metadata["attestation"] = "failed"
	default:
		signal.RequestCount = 10 + g.rng.Intn(300)
		signal.ClientID = browserAgents[g.rng.Intn(len(browserAgents))]
	}
	return signal
}

// Scenario produces the named scenario signal, or an error for unknown names.
func (g *Generator) Scenario(name string) (models.ThreatSignal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch name {
	case ScenarioCredentialAttack:
		signal := g.base(models.CategoryCredentialStuffing)
		signal.SourceIP = "203.0.113.15"
		signal.ClientID = "python-requests/2.31"
		signal.RequestCount = 500
		signal.Window = 5 * time.Minute
		signal.Metadata["endpoint"] = "/api/v1/login"
		signal.Metadata["failed_logins"] = 450
		return signal, nil
	case ScenarioBenignCrawler:
		signal := g.base(models.CategoryBotTraffic)
		signal.SourceIP = "66.249.66.1"
		signal.ClientID = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
		signal.RequestCount = 40
		signal.Window = 10 * time.Minute
		signal.Metadata["endpoint"] = "/sitemap.xml"
		return signal, nil
	case ScenarioTrafficSurge:
		signal := g.base(models.CategoryRateLimitBreach)
		signal.SourceIP = "198.18.0.4"
		signal.ClientID = "Mozilla/5.0 (Windows NT 10.0)"
		signal.RequestCount = 12000
		signal.Window = 5 * time.Minute
		signal.Metadata["endpoint"] = "/api/v1/quotes"
		return signal, nil
	case ScenarioCriticalCompromise:
		signal := g.base(models.CategoryDeviceCompromise)
		signal.SourceIP = "185.220.101.7"
		signal.RequestCount = 25
		signal.Window = 15 * time.Minute
		signal.Metadata["device_id"] = "dev-004217"
		signal.Metadata["attestation"] = "failed"
		signal.Metadata["root_detected"] = true
		return signal, nil
	default:
		return models.ThreatSignal{}, fmt.Errorf("unknown scenario %q", name)
	}
}

func (g *Generator) base(category models.ThreatCategory) models.ThreatSignal {
	g.seq++
	return models.ThreatSignal{
		ID:           fmt.Sprintf("sig-%06d", g.seq),
		Category:     category,
		Customer:     generatorCustomers[g.rng.Intn(len(generatorCustomers))],
		SourceIP:     neutralSources[g.rng.Intn(len(neutralSources))],
		RequestCount: 100,
		Window:       5 * time.Minute,
		DetectedAt:   g.now().UTC(),
		Metadata:     map[string]any{},
	}
}
