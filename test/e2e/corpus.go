// Package e2e provides end-to-end tests over a larger memory corpus.
package e2e

import (
	"fmt"
	"strings"
)

// E2EMemory is one memory entry in the corpus.
type E2EMemory struct {
	Ref     string
	Content string
}

// QueryTestCase defines a query and the memory ref(s) that must appear in
// search results. At least one of ExpectedRefs must be present.
type QueryTestCase struct {
	Query        string
	ExpectedRefs []string
	Description  string
}

// Corpus holds memory entries and query test cases for E2E tests.
type Corpus struct {
	Memories     []E2EMemory
	TestCases    []QueryTestCase
	TotalEntries int
	TotalQueries int
}

// BuildCorpus returns a corpus of memory entries with varied content and
// query test cases. Each entry has a unique signature phrase so queries can
// assert the correct entry is returned.
func BuildCorpus() *Corpus {
	memories := buildMemories()
	cases := buildQueryTestCases(memories)
	return &Corpus{
		Memories:     memories,
		TestCases:    cases,
		TotalEntries: len(memories),
		TotalQueries: len(cases),
	}
}

func buildMemories() []E2EMemory {
	contents := []string{
		"Project deadline is March 15. The project deadline covers the beta milestone only.",
		"Client wants dark mode in the settings screen. Dark mode should follow the system preference.",
		"Kubernetes cluster upgrade is scheduled for Friday. Kubernetes cluster upgrade needs a maintenance window.",
		"PostgreSQL connection pool is capped at 50. PostgreSQL connection pool exhaustion caused the outage.",
		"Redis cache TTL for sessions is 30 minutes. Redis cache TTL should not exceed the token lifetime.",
		"The staging environment uses the eu-west-1 region. Staging environment data is wiped nightly.",
		"API rate limit is 100 requests per minute per key. API rate limit violations return status 429.",
		"Docker images are built from the alpine base. Docker images must be scanned before release.",
		"Grafana dashboard for latency lives in the ops folder. Grafana dashboard alerts page the on-call.",
		"Terraform state is stored in the s3 backend. Terraform state locking uses DynamoDB.",
		"OAuth tokens expire after one hour. OAuth tokens are refreshed by the background worker.",
		"Payment provider webhook retries five times. Payment provider webhook signatures must be verified.",
		"Search results are cached for five minutes. Search results cache is keyed by normalized query.",
		"The mobile app minimum version is 4.2. Mobile app versions below minimum see an upgrade prompt.",
		"Backup restore drill happens every quarter. Backup restore drill results go in the runbook.",
		"Feature flags live in the flags.yaml file. Feature flags default to off in production.",
		"Incident bridge is the video channel named war-room. Incident bridge notes go to the postmortem doc.",
		"The CEO demo is on the second Tuesday of the month. CEO demo environment must be frozen the day before.",
		"Log retention is 90 days in the archive bucket. Log retention for audit events is seven years.",
		"Canary deploys take ten percent of traffic. Canary deploys are rolled back automatically on errors.",
		"SSH access to production requires the bastion host. SSH access keys rotate every six months.",
		"The design system uses an eight point spacing grid. Design system tokens are published as a package.",
		"Email sending goes through the transactional provider. Email sending is throttled at 200 per minute.",
		"Customer PII is encrypted at rest with KMS. Customer PII never appears in application logs.",
		"Load balancer health checks hit the healthz path. Load balancer drains connections before removal.",
		"The onboarding checklist is in the wiki handbook. Onboarding checklist includes laptop setup and access.",
		"GraphQL schema changes need a deprecation notice. GraphQL schema breaking changes wait two releases.",
		"Sprint planning happens Monday mornings. Sprint planning capacity excludes on-call engineers.",
		"The pricing page experiment ends next month. Pricing page experiment uses a fifty-fifty split.",
		"Database migrations run before the deploy step. Database migrations must be backward compatible.",
		"Error budgets reset at the start of each quarter. Error budgets gate risky launches.",
		"The iOS build signing certificate renews in June. iOS build signing is handled by the release pipeline.",
		"Webhook consumers must respond within three seconds. Webhook consumers should queue work instead of blocking.",
		"The analytics events schema lives in the tracking plan. Analytics events are validated at ingestion.",
		"Support escalations page the secondary on-call. Support escalations above severity two open an incident.",
		"The CDN purges automatically on asset deploys. CDN cache keys include the release hash.",
		"Vendor security reviews are due before contract signing. Vendor security reviews use the standard questionnaire.",
		"The Kafka topic for orders has twelve partitions. Kafka topic retention for orders is three days.",
		"Accessibility audits run before each major release. Accessibility audits follow the WCAG checklist.",
		"The NPS survey goes out to ten percent of users. NPS survey responses feed the quarterly review.",
	}
	out := make([]E2EMemory, len(contents))
	for i, c := range contents {
		out[i] = E2EMemory{
			Ref:     fmt.Sprintf("e2e-mem-%03d", i+1),
			Content: c,
		}
	}
	return out
}

func buildQueryTestCases(memories []E2EMemory) []QueryTestCase {
	queries := []string{
		"project deadline",
		"dark mode settings",
		"kubernetes cluster upgrade",
		"postgresql connection pool",
		"redis cache ttl",
		"staging environment region",
		"api rate limit",
		"docker images scanned",
		"grafana dashboard latency",
		"terraform state locking",
		"oauth tokens expire",
		"payment provider webhook",
		"mobile app minimum version",
		"backup restore drill",
		"feature flags production",
		"incident bridge channel",
		"log retention audit",
		"canary deploys traffic",
		"bastion host ssh",
		"customer pii encrypted",
		"database migrations deploy",
		"error budgets quarter",
		"kafka topic partitions",
		"accessibility audits release",
	}
	var cases []QueryTestCase
	used := make(map[string]bool)
	for _, q := range queries {
		for _, m := range memories {
			if containsAllWords(m.Content, q) && !used[m.Ref] {
				cases = append(cases, QueryTestCase{
					Query:        q,
					ExpectedRefs: []string{m.Ref},
					Description:  fmt.Sprintf("query %q should return %s", q, m.Ref),
				})
				used[m.Ref] = true
				break
			}
		}
	}
	return cases
}

func containsAllWords(content, query string) bool {
	lower := strings.ToLower(content)
	for _, word := range strings.Fields(strings.ToLower(query)) {
		if !strings.Contains(lower, word) {
			return false
		}
	}
	return true
}
