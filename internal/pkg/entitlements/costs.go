package entitlements

// Credit costs per generation kind.
const (
	CostStyleGeneration = 15
	CostCharacterAsset  = 8
	CostObjectAsset     = 8
	CostSetAsset        = 5
	CostAssetRefinement = 5
)

// AssetGenerationCost returns the credit cost for generating one asset of
// the given type. Refinements cost the same regardless of asset type.
func AssetGenerationCost(assetType string, isRefinement bool) int {
	if isRefinement {
		return CostAssetRefinement
	}
	switch assetType {
	case "set":
		return CostSetAsset
	case "object":
		return CostObjectAsset
	default:
		return CostCharacterAsset
	}
}
