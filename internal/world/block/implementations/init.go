package implementations

import "github.com/annel0/blockverse/internal/world/block"

// Регистрируем все типы блоков при импорте пакета
func init() {
	// Базовые блоки
	block.Register(block.AirBlockID, NewAirBehavior(block.AirBlockID, "air"))
	block.Register(block.CaveAirBlockID, NewAirBehavior(block.CaveAirBlockID, "cave_air"))
	block.Register(block.StoneBlockID, newSolid(block.StoneBlockID, "stone"))
	block.Register(block.CobblestoneBlockID, newSolid(block.CobblestoneBlockID, "cobblestone"))
	block.Register(block.BedrockBlockID, newSolid(block.BedrockBlockID, "bedrock"))
	block.Register(block.GrassBlockID, newGrassBlock())
	block.Register(block.DirtBlockID, newDirt(block.DirtBlockID, "dirt"))
	block.Register(block.SandBlockID, newDirt(block.SandBlockID, "sand"))
	block.Register(block.WaterBlockID, newWater())

	// Растительность
	block.Register(block.TallGrassBlockID, newTallGrass())
	block.Register(block.OakLogBlockID, newOakLog())
	block.Register(block.OakLeavesBlockID, newOakLeaves())

	// Прозрачные материалы
	block.Register(block.GlassBlockID, newGlass())
	block.Register(block.IceBlockID, newIce())

	// Источники света
	block.Register(block.TorchBlockID, newTorch())
	block.Register(block.GlowstoneBlockID, newGlowstone())
}
