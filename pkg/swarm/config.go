package swarm

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-swarm/pkg/breaker"
	"github.com/dd0wney/cluso-swarm/pkg/trust"
)

var validate = validator.New()

// SwarmConfig defines configuration for one coordination node
type SwarmConfig struct {
	// Node identification
	NodeName string `yaml:"node_name" validate:"required"`

	// Tick and term timing
	TickInterval time.Duration `yaml:"tick_interval"` // external step period (reference: 7s)
	TermDuration time.Duration `yaml:"term_duration"` // nominal leadership epoch

	// Election timing: timeout = base + [0, jitter) to avoid
	// synchronized split votes
	ElectionTimeoutBase   time.Duration `yaml:"election_timeout_base"`
	ElectionTimeoutJitter time.Duration `yaml:"election_timeout_jitter"`

	// Nomination gating
	NominationProbability float64 `yaml:"nomination_probability" validate:"min=0,max=1"`
	MinTrustToLead        float64 `yaml:"min_trust_to_lead" validate:"min=0,max=1"`
	MinCreativityToLead   float64 `yaml:"min_creativity_to_lead" validate:"min=0,max=1"`
	MinHarmonyToLead      float64 `yaml:"min_harmony_to_lead" validate:"min=0,max=1"`

	// ElectionQuorumThreshold is the trust-weighted confidence fraction
	// a candidate needs among known voters to win before timeout
	ElectionQuorumThreshold float64 `yaml:"election_quorum_threshold" validate:"gt=0,max=1"`

	// Decision defaults applied when a proposal leaves them zero
	DecisionThreshold float64       `yaml:"decision_threshold" validate:"gt=0,max=1"`
	DecisionDeadline  time.Duration `yaml:"decision_deadline"`

	// Bounded execution of the periodic step
	StepTimeout            time.Duration  `yaml:"step_timeout"`
	StepMemoryCeilingBytes uint64         `yaml:"step_memory_ceiling_bytes"` // zero disables the pre-check
	StepBreaker            breaker.Config `yaml:"step_breaker"`

	// Zombie sweep: executions older than the grace period are canceled
	// and reclaimed once per sweep interval
	SweepInterval    time.Duration `yaml:"sweep_interval"`
	SweepGracePeriod time.Duration `yaml:"sweep_grace_period"`

	// Trust ledger tuning
	Trust trust.Config `yaml:"trust"`

	// MaxEmergencyInterventions is how many step failures are absorbed
	// before ticks suspend pending operator intervention
	MaxEmergencyInterventions int `yaml:"max_emergency_interventions" validate:"min=1"`
}

// DefaultSwarmConfig returns a safe default configuration
func DefaultSwarmConfig(nodeName string) SwarmConfig {
	return SwarmConfig{
		NodeName:                  nodeName,
		TickInterval:              7 * time.Second,
		TermDuration:              5 * time.Minute,
		ElectionTimeoutBase:       15 * time.Second,
		ElectionTimeoutJitter:     10 * time.Second,
		NominationProbability:     0.15,
		MinTrustToLead:            0.55,
		MinCreativityToLead:       0.45,
		MinHarmonyToLead:          0.50,
		ElectionQuorumThreshold:   0.5,
		DecisionThreshold:         0.66,
		DecisionDeadline:          time.Minute,
		StepTimeout:               5 * time.Second,
		StepMemoryCeilingBytes:    0,
		StepBreaker:               breaker.DefaultConfig(),
		SweepInterval:             30 * time.Second,
		SweepGracePeriod:          5 * time.Minute,
		Trust:                     trust.DefaultConfig(),
		MaxEmergencyInterventions: 5,
	}
}

// Validate checks if configuration is valid
func (c *SwarmConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return firstValidationError(verrs)
		}
		return err
	}

	if c.TickInterval <= 0 {
		return ErrInvalidTickInterval
	}
	if c.TermDuration <= c.TickInterval {
		return ErrInvalidTermDuration
	}
	if c.ElectionTimeoutBase <= 0 || c.ElectionTimeoutJitter < 0 {
		return ErrInvalidElectionTimeout
	}
	if c.SweepInterval <= 0 || c.SweepGracePeriod <= 0 {
		return ErrInvalidSweepConfig
	}
	if err := c.StepBreaker.Validate(); err != nil {
		return err
	}
	return nil
}

// firstValidationError maps struct-tag violations onto the package's
// sentinel errors so callers can test with errors.Is.
func firstValidationError(errs validator.ValidationErrors) error {
	for _, fe := range errs {
		switch fe.Field() {
		case "NodeName":
			return ErrInvalidNodeName
		case "NominationProbability":
			return ErrInvalidNominationProbability
		case "ElectionQuorumThreshold", "DecisionThreshold":
			return ErrInvalidQuorumThreshold
		case "MinTrustToLead", "MinCreativityToLead", "MinHarmonyToLead":
			return ErrInvalidQualificationThreshold
		default:
			return fmt.Errorf("invalid field %s: %s", fe.Field(), fe.Tag())
		}
	}
	return nil
}

// LoadConfig reads a YAML configuration file, filling unset fields from
// defaults before validating.
func LoadConfig(path string) (SwarmConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SwarmConfig{}, fmt.Errorf("read config: %w", err)
	}

	config := DefaultSwarmConfig("")
	if err := yaml.Unmarshal(data, &config); err != nil {
		return SwarmConfig{}, fmt.Errorf("parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return SwarmConfig{}, err
	}
	return config, nil
}
