package entitlements

import "testing"

func testCatalog() *Catalog {
	return NewCatalog(
		[]PlanDefinition{
			{ID: PlanFree, Name: "Free", MonthlyCredits: 50},
			{ID: PlanStarter, Name: "Starter", MonthlyCredits: 200, PriceRef: "price_starter"},
			{ID: PlanPro, Name: "Pro", MonthlyCredits: 600, PriceRef: "price_pro"},
		},
		[]CreditPackDefinition{
			{ID: "credits-500", Credits: 500, PriceRef: "price_pack_500"},
		},
	)
}

func TestResolvePlanByPriceRef(t *testing.T) {
	c := testCatalog()

	if p := c.ResolvePlanByPriceRef("price_starter"); p == nil || p.ID != PlanStarter {
		t.Fatalf("expected starter plan, got %+v", p)
	}
	if p := c.ResolvePlanByPriceRef("price_unknown"); p != nil {
		t.Fatalf("expected nil for unknown price, got %+v", p)
	}
	// The free plan has no price ref; an empty ref must never match it.
	if p := c.ResolvePlanByPriceRef(""); p != nil {
		t.Fatalf("expected nil for empty price ref, got %+v", p)
	}
}

func TestResolvePackByPriceRef(t *testing.T) {
	c := testCatalog()

	if p := c.ResolvePackByPriceRef("price_pack_500"); p == nil || p.Credits != 500 {
		t.Fatalf("expected 500 credit pack, got %+v", p)
	}
	if p := c.ResolvePackByPriceRef("price_starter"); p != nil {
		t.Fatalf("plan prices must not resolve as packs, got %+v", p)
	}
}

func TestGetPlan(t *testing.T) {
	c := testCatalog()

	if p := c.GetPlan(PlanPro); p == nil || p.MonthlyCredits != 600 {
		t.Fatalf("expected pro plan with 600 credits, got %+v", p)
	}
	if p := c.GetPlan(Plan("enterprise")); p != nil {
		t.Fatalf("expected nil for unknown plan, got %+v", p)
	}
}

func TestNormalizePlan(t *testing.T) {
	tests := []struct {
		in   string
		want Plan
	}{
		{in: "free", want: PlanFree},
		{in: "starter", want: PlanStarter},
		{in: "pro", want: PlanPro},
		{in: "PRO", want: PlanPro},
		{in: "invalid", want: PlanFree},
		{in: "", want: PlanFree},
	}

	for _, tt := range tests {
		if got := NormalizePlan(tt.in); got != tt.want {
			t.Fatalf("NormalizePlan(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAssetGenerationCost(t *testing.T) {
	tests := []struct {
		assetType    string
		isRefinement bool
		want         int
	}{
		{assetType: "character", want: CostCharacterAsset},
		{assetType: "object", want: CostObjectAsset},
		{assetType: "set", want: CostSetAsset},
		{assetType: "character", isRefinement: true, want: CostAssetRefinement},
		{assetType: "set", isRefinement: true, want: CostAssetRefinement},
	}

	for _, tt := range tests {
		if got := AssetGenerationCost(tt.assetType, tt.isRefinement); got != tt.want {
			t.Fatalf("AssetGenerationCost(%q, %v) = %d, want %d", tt.assetType, tt.isRefinement, got, tt.want)
		}
	}
}
