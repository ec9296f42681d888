package models

import (
	"errors"
	"time"
)

// ErrStaleUpdate is returned when an update carries a billing fact older than the newest
// one already applied to the profile.
var ErrStaleUpdate = errors.New("update is older than the last applied billing event")

// ErrReleasedSubscription is returned when a provider event names a subscription the profile
// already gave up on request.
var ErrReleasedSubscription = errors.New("update names a released subscription")

// Profile mirrors one user's billing state at the payment provider.
// It is a cache of provider state, never the source of truth.
type Profile struct {
	UserID               string        `json:"userId" firestore:"-"` // identity-provider UID, also the document ID
	Email                string        `json:"email" firestore:"email"`
	SubscriptionTier     *PlanInterval `json:"subscriptionTier" firestore:"subscriptionTier"`
	StripeSubscriptionID *string       `json:"stripeSubscriptionId" firestore:"stripeSubscriptionId"`
	SubscriptionActive   bool          `json:"subscriptionActive" firestore:"subscriptionActive"`

	// ReleasedSubscriptionID is the subscription this system cancelled itself on unsubscribe.
	ReleasedSubscriptionID *string `json:"-" firestore:"releasedSubscriptionId"`
	// LastEventAt is the creation time of the newest billing fact applied to the profile.
	LastEventAt *time.Time `json:"-" firestore:"lastEventAt"`

	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// BillingState is the composite state of (active, tier, subscription id).
type BillingState string

const (
	StateUnsubscribed BillingState = "unsubscribed"
	StateActive       BillingState = "active"
	StatePastDue      BillingState = "past_due"
)

// NewProfile returns a profile in the Unsubscribed state.
func NewProfile(userID, email string, now time.Time) *Profile {
	return &Profile{
		UserID:    userID,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// State derives the billing state from the stored fields.
func (p *Profile) State() BillingState {
	switch {
	case p.SubscriptionActive:
		return StateActive
	case p.StripeSubscriptionID != nil:
		return StatePastDue
	default:
		return StateUnsubscribed
	}
}

// HasSubscription reports whether a provider subscription is linked to the profile.
func (p *Profile) HasSubscription() bool {
	return p.StripeSubscriptionID != nil && *p.StripeSubscriptionID != ""
}

// Consistent reports whether an active profile carries both a tier and a subscription id.
func (p *Profile) Consistent() bool {
	if !p.SubscriptionActive {
		return true
	}
	return p.SubscriptionTier != nil && p.HasSubscription()
}

// Clone returns a deep copy so stores never hand out shared pointers.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	cp := *p
	if p.SubscriptionTier != nil {
		tier := *p.SubscriptionTier
		cp.SubscriptionTier = &tier
	}
	cp.StripeSubscriptionID = cloneString(p.StripeSubscriptionID)
	cp.ReleasedSubscriptionID = cloneString(p.ReleasedSubscriptionID)
	if p.LastEventAt != nil {
		at := *p.LastEventAt
		cp.LastEventAt = &at
	}
	return &cp
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// NullableField is one field of a partial update. Set=false leaves the stored value alone;
// Set=true with a nil Value writes null.
type NullableField[T any] struct {
	Set   bool
	Value *T
}

// SetValue returns a field that writes v.
func SetValue[T any](v T) NullableField[T] {
	return NullableField[T]{Set: true, Value: &v}
}

// SetNull returns a field that writes null.
func SetNull[T any]() NullableField[T] {
	return NullableField[T]{Set: true}
}

// ProfileUpdate describes a partial write to a Profile.
type ProfileUpdate struct {
	SubscriptionTier       NullableField[PlanInterval]
	StripeSubscriptionID   NullableField[string]
	SubscriptionActive     *bool
	ReleasedSubscriptionID NullableField[string]
	// LastEventAt is the provider creation time of the event behind this update. When set, the
	// update is rejected with ErrStaleUpdate if the profile already holds a newer event.
	// User actions leave it nil: server and provider clocks are not comparable.
	LastEventAt *time.Time
	// UnlessReleased, when non-empty, rejects the update with ErrReleasedSubscription if the
	// profile released that subscription.
	UnlessReleased string
}

// Apply writes the update onto p and stamps UpdatedAt. Stores call it inside their
// atomic section so the LastEventAt and UnlessReleased checks cannot interleave with the write.
func (u ProfileUpdate) Apply(p *Profile, now time.Time) error {
	if u.LastEventAt != nil && p.LastEventAt != nil && u.LastEventAt.Before(*p.LastEventAt) {
		return ErrStaleUpdate
	}
	if u.UnlessReleased != "" && p.ReleasedSubscriptionID != nil && *p.ReleasedSubscriptionID == u.UnlessReleased {
		return ErrReleasedSubscription
	}
	if u.SubscriptionTier.Set {
		p.SubscriptionTier = nil
		if u.SubscriptionTier.Value != nil {
			tier := *u.SubscriptionTier.Value
			p.SubscriptionTier = &tier
		}
	}
	if u.StripeSubscriptionID.Set {
		p.StripeSubscriptionID = cloneString(u.StripeSubscriptionID.Value)
	}
	if u.SubscriptionActive != nil {
		p.SubscriptionActive = *u.SubscriptionActive
	}
	if u.ReleasedSubscriptionID.Set {
		p.ReleasedSubscriptionID = cloneString(u.ReleasedSubscriptionID.Value)
	}
	if u.LastEventAt != nil {
		at := *u.LastEventAt
		p.LastEventAt = &at
	}
	p.UpdatedAt = now
	return nil
}

// NewSubscriptionID returns the subscription id the update writes, and whether it writes one.
func (u ProfileUpdate) NewSubscriptionID() (string, bool) {
	if !u.StripeSubscriptionID.Set || u.StripeSubscriptionID.Value == nil {
		return "", false
	}
	return *u.StripeSubscriptionID.Value, true
}
