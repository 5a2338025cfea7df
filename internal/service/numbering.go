package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/corebill/corebill/internal/config"
	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/types"
)

const numberAssignAttempts = 5

// existsFn reports whether a candidate document number is already taken
type existsFn func(ctx context.Context, number string) (bool, error)

// assignDocumentNumber produces a unique human-facing document number of the
// form PREFIX-YYYY-SUFFIX. The suffix comes from a fresh ULID, so collisions
// are rare; the exists check catches the remainder.
func assignDocumentNumber(ctx context.Context, cfg config.BillingConfig, prefix string, exists existsFn) (string, error) {
	suffixLen := cfg.InvoiceNumberSuffixLength
	if suffixLen <= 0 {
		suffixLen = 6
	}

	year := time.Now().UTC().Year()
	for attempt := 0; attempt < numberAssignAttempts; attempt++ {
		id := types.GenerateUUID()
		suffix := strings.ToUpper(id[len(id)-suffixLen:])
		candidate := fmt.Sprintf("%s-%d-%s", prefix, year, suffix)

		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}

	return "", ierr.NewError("failed to assign document number").
		WithHint("Could not generate a unique document number, retry the operation").
		Mark(ierr.ErrSystem)
}
