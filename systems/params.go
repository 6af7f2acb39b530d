package systems

import "github.com/pthm-cable/natsel/config"

// Params holds the rule constants read on hot paths, resolved once from config.
type Params struct {
	MinSpeed, MaxSpeed         int
	MinAwareness, MaxAwareness int
	MinSize, MaxSize           float64

	SpeedMutationRate     float64
	AwarenessMutationRate float64
	SizeMutationRate      float64
	MaxSizeMutation       float64

	MaxEnergy     float64
	SizeCost      float64
	AwarenessCost float64

	SizeToEatThreshold float64

	MaxStrength     int
	MaxTrailLength  int
	TrailConsumeCap float64

	Visibility Connectivity
}

// ParamsFromConfig resolves rule constants from a validated config.
func ParamsFromConfig(cfg *config.Config) (Params, error) {
	conn, err := ParseConnectivity(cfg.Sensing.Connectivity)
	if err != nil {
		return Params{}, err
	}

	return Params{
		MinSpeed:     cfg.Genes.MinSpeed,
		MaxSpeed:     cfg.Genes.MaxSpeed,
		MinAwareness: cfg.Genes.MinAwareness,
		MaxAwareness: cfg.Genes.MaxAwareness,
		MinSize:      cfg.Genes.MinSize,
		MaxSize:      cfg.Genes.MaxSize,

		SpeedMutationRate:     cfg.Mutation.SpeedRate,
		AwarenessMutationRate: cfg.Mutation.AwarenessRate,
		SizeMutationRate:      cfg.Mutation.SizeRate,
		MaxSizeMutation:       cfg.Mutation.MaxSizeDelta,

		MaxEnergy:     cfg.Energy.Max,
		SizeCost:      cfg.Energy.SizeCost,
		AwarenessCost: cfg.Energy.AwarenessCost,

		SizeToEatThreshold: cfg.Predation.SizeToEatThreshold,

		MaxStrength:     cfg.Trail.MaxStrength,
		MaxTrailLength:  cfg.Trail.MaxLength,
		TrailConsumeCap: cfg.Trail.ConsumeCap,

		Visibility: conn,
	}, nil
}

// MoveInterval returns the ticks between moves for a given speed.
// Faster organisms move more often; MaxSpeed moves every tick.
func (p *Params) MoveInterval(speed int) int {
	return 1 + p.MaxSpeed - speed
}
