// Package services holds the tracking pipeline stages that sit between
// ingestion and the read side.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/domain"
)

// taskIDNamespace seeds ids derived for records that carry no external id.
var taskIDNamespace = uuid.MustParse("6f1c2a8e-3b7d-4e59-9a0c-5d2e8b417c30")

// Policy holds the pipeline-level toggles of a normalizer.
type Policy struct {
	// ResolveMode decides what happens to owner tokens missing from the directory.
	ResolveMode domain.ResolveMode
	// DedupOwners keeps only the first occurrence of a name in each owner list.
	DedupOwners bool
	// DropOwnerless removes tasks whose owner lists both come out empty.
	DropOwnerless bool
}

// Normalizer classifies raw records and resolves their owners.
type Normalizer struct {
	rules     domain.RuleTable
	overrides domain.OverrideTable
	resolver  *domain.Resolver
	policy    Policy
	logger    *slog.Logger
}

// NewNormalizer creates a normalizer for one refresh.
func NewNormalizer(rules domain.RuleTable, ref domain.ReferenceData, policy Policy, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		rules:     rules,
		overrides: ref.Overrides,
		resolver:  domain.NewResolver(ref.Owners, policy.ResolveMode).WithDedup(policy.DedupOwners),
		policy:    policy,
		logger:    logger,
	}
}

// Normalize turns one record into a task. It returns an error wrapping
// domain.ErrMalformedRecord when required fields are missing.
func (n *Normalizer) Normalize(raw domain.RawRecord) (domain.NormalizedTask, error) {
	category, err := raw.Validate()
	if err != nil {
		return domain.NormalizedTask{}, err
	}

	externalID := domain.NormalizeText(raw.ExternalID)
	title := domain.NormalizeText(raw.Title)
	status := domain.NormalizeText(raw.Status)

	if o, ok := n.overrides.Lookup(externalID); ok {
		n.logger.Debug("category override applied",
			"external_id", externalID,
			"from", category.String(),
			"to", o.Category.String(),
			"reason", o.Reason,
		)
		category = o.Category
	}

	flags := n.rules.Classify(category, status)

	discovery := []string{}
	if flags.InDiscovery {
		discovery = n.resolveOwners(domain.PhaseDiscovery, title, raw.DiscoveryCandidates)
	}
	delivery := []string{}
	if flags.InDelivery {
		delivery = n.resolveOwners(domain.PhaseDelivery, title, raw.DeliveryCandidates)
	}

	id := externalID
	if id == "" {
		id = deriveTaskID(category, title)
	}

	return domain.NormalizedTask{
		ID:              id,
		ExternalID:      externalID,
		Title:           title,
		Category:        category,
		Status:          status,
		URL:             domain.NormalizeText(raw.URL),
		Phases:          flags,
		DiscoveryOwners: discovery,
		DeliveryOwners:  delivery,
	}, nil
}

// resolveOwners resolves candidate tokens. Tokens that do not resolve are
// dropped and only logged.
func (n *Normalizer) resolveOwners(phase domain.Phase, title string, tokens []string) []string {
	names := n.resolver.ResolveList(tokens)
	if !n.policy.DedupOwners && len(names) < len(tokens) {
		n.logger.Debug("unresolved owner tokens",
			"title", title,
			"phase", phase.String(),
			"candidates", len(tokens),
			"resolved", len(names),
		)
	}
	return names
}

// SkippedRecord describes a record that could not be normalized.
type SkippedRecord struct {
	Index  int
	Source string
	Title  string
	Err    error
}

// BatchResult is the outcome of normalizing one snapshot of records.
type BatchResult struct {
	Tasks   []domain.NormalizedTask
	Skipped []SkippedRecord
	// Dropped counts ownerless tasks removed by Policy.DropOwnerless.
	Dropped int
}

// NormalizeAll normalizes records in order. Malformed records are skipped
// without aborting the batch, and ids are made unique within the batch.
func (n *Normalizer) NormalizeAll(ctx context.Context, records []domain.RawRecord) BatchResult {
	result := BatchResult{Tasks: make([]domain.NormalizedTask, 0, len(records))}
	seen := make(map[string]struct{}, len(records))

	for i, raw := range records {
		task, err := n.Normalize(raw)
		if err != nil {
			n.logger.WarnContext(ctx, "skipping malformed record",
				"index", i,
				"source", raw.Source,
				"title", raw.Title,
				"error", err,
			)
			result.Skipped = append(result.Skipped, SkippedRecord{Index: i, Source: raw.Source, Title: raw.Title, Err: err})
			continue
		}

		if n.policy.DropOwnerless && task.IsOwnerless() {
			n.logger.DebugContext(ctx, "dropping ownerless task", "id", task.ID, "status", task.Status)
			result.Dropped++
			continue
		}

		task.ID = uniqueID(seen, task.ID)
		result.Tasks = append(result.Tasks, task)
	}

	return result
}

func uniqueID(seen map[string]struct{}, id string) string {
	candidate := id
	for n := 2; ; n++ {
		if _, taken := seen[candidate]; !taken {
			seen[candidate] = struct{}{}
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", id, n)
	}
}

func deriveTaskID(category domain.Category, title string) string {
	return uuid.NewSHA1(taskIDNamespace, []byte(category.String()+"\x00"+title)).String()
}
