package cards

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Issuer represents a connector to an external card-provisioning processor.
type Issuer interface {
	IssueCard(ctx context.Context, req IssueRequest) (IssuedCard, error)
	SetCardState(ctx context.Context, providerRef string, frozen bool) error
}

// IssueRequest captures the details the processor needs.
type IssueRequest struct {
	AccountID string
	Currency  string
	Label     string
}

// IssuedCard is the processor's provisioning result.
type IssuedCard struct {
	ProviderRef string
	Last4       string
	ExpMonth    int
	ExpYear     int
}

// StaticIssuer simulates a successful provisioning integration.
type StaticIssuer struct{}

// IssueCard approves the request with synthetic card details.
func (StaticIssuer) IssueCard(_ context.Context, _ IssueRequest) (IssuedCard, error) {
	exp := time.Now().AddDate(3, 0, 0)
	return IssuedCard{
		ProviderRef: uuid.NewString(),
		Last4:       fmt.Sprintf("%04d", rand.Intn(10000)),
		ExpMonth:    int(exp.Month()),
		ExpYear:     exp.Year(),
	}, nil
}

// SetCardState acknowledges freeze/unfreeze without side effects.
func (StaticIssuer) SetCardState(_ context.Context, _ string, _ bool) error {
	return nil
}
