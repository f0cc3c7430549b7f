package v1

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tradepost/internal/domain/documents/purchase"
)

func TestRouter_PurchaseReceiveVerbs(t *testing.T) {
	router := NewRouter(RouterConfig{
		Purchases: purchase.NewService(nil, nil, nil, nil, nil, nil, nil, nil),
	})

	var methods []string
	for _, r := range router.Routes() {
		if r.Path == "/api/v1/purchases/:id/receive" {
			methods = append(methods, r.Method)
		}
	}

	assert.ElementsMatch(t, []string{"POST", "PATCH"}, methods)
}
