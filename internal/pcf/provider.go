// Package pcf implements the policy provider: create-or-update of QoS and
// charging rules keyed by policy ID, plus the "pick any configured policy"
// mode used by the session orchestrator.
package pcf

import (
	"context"

	"github.com/free5gc/coresim/internal/audit"
	"github.com/free5gc/coresim/internal/logger"
	"github.com/free5gc/coresim/internal/model"
	"github.com/free5gc/coresim/internal/nferr"
	"github.com/free5gc/coresim/internal/storage"
)

// Policy write outcome statuses.
const (
	StatusCreated = "created"
	StatusUpdated = "updated"
)

// Provider manages policy rules.
type Provider interface {
	// SetPolicy creates or fully replaces the rule keyed by PolicyID and
	// returns StatusCreated or StatusUpdated.
	SetPolicy(ctx context.Context, rule model.PolicyRule) (string, error)

	// GetPolicy returns the rule for policyID, or a NotFound error.
	GetPolicy(ctx context.Context, policyID string) (model.PolicyRule, error)

	// PickAnyQos returns the QoS of the first configured rule, standing in
	// for subscriber-specific policy lookup. When no rule is configured it
	// returns the transient default {5qi:9} without persisting it.
	PickAnyQos(ctx context.Context) (map[string]any, error)
}

// providerImpl is the concrete implementation of Provider.
type providerImpl struct {
	store storage.Store
	sink  audit.Sink
}

// NewProvider creates a Provider over the given store and audit sink.
func NewProvider(store storage.Store, sink audit.Sink) Provider {
	return &providerImpl{
		store: store,
		sink:  sink,
	}
}

// SetPolicy implements Provider.SetPolicy.
func (provider *providerImpl) SetPolicy(
	ctx context.Context,
	rule model.PolicyRule,
) (string, error) {
	if rule.Qos == nil {
		rule.Qos = model.DefaultQos()
	}
	if rule.Charging == nil {
		rule.Charging = map[string]any{}
	}

	filter := storage.Filter{"policy_id": rule.PolicyID}

	var existing model.PolicyRule
	found, findError := provider.store.FindOne(ctx, model.CollectionPolicyRule, filter, &existing)
	if findError != nil {
		return "", nferr.StoreUnavailable(findError, "look up policy %s", rule.PolicyID)
	}

	status := StatusCreated
	if found {
		set := map[string]any{
			"desc":     rule.Desc,
			"qos":      rule.Qos,
			"charging": rule.Charging,
		}
		if _, updateError := provider.store.UpdateOne(ctx, model.CollectionPolicyRule, filter, set); updateError != nil {
			return "", nferr.StoreUnavailable(updateError, "update policy %s", rule.PolicyID)
		}
		status = StatusUpdated
	} else {
		if createError := provider.store.CreateOne(ctx, model.CollectionPolicyRule, rule); createError != nil {
			return "", nferr.StoreUnavailable(createError, "create policy %s", rule.PolicyID)
		}
	}

	if appendError := provider.sink.Append(ctx, "PCF", "INFO", "Policy "+status, map[string]any{
		"policy_id": rule.PolicyID,
	}); appendError != nil {
		return "", nferr.StoreUnavailable(appendError, "record policy write of %s", rule.PolicyID)
	}

	logger.PcfLog.Infof("policy %s policyId=%s", status, rule.PolicyID)
	return status, nil
}

// GetPolicy implements Provider.GetPolicy.
func (provider *providerImpl) GetPolicy(
	ctx context.Context,
	policyID string,
) (model.PolicyRule, error) {
	var rule model.PolicyRule
	found, findError := provider.store.FindOne(
		ctx,
		model.CollectionPolicyRule,
		storage.Filter{"policy_id": policyID},
		&rule,
	)
	if findError != nil {
		return model.PolicyRule{}, nferr.StoreUnavailable(findError, "look up policy %s", policyID)
	}
	if !found {
		return model.PolicyRule{}, nferr.NotFound("policy %s not found", policyID)
	}
	return rule, nil
}

// PickAnyQos implements Provider.PickAnyQos.
func (provider *providerImpl) PickAnyQos(ctx context.Context) (map[string]any, error) {
	var rule model.PolicyRule
	found, findError := provider.store.FindOne(ctx, model.CollectionPolicyRule, storage.Filter{}, &rule)
	if findError != nil {
		return nil, nferr.StoreUnavailable(findError, "pick policy")
	}
	if !found || rule.Qos == nil {
		return model.FallbackQos(), nil
	}
	return rule.Qos, nil
}
