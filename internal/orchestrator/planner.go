package orchestrator

import (
	"errors"
	"fmt"

	"github.com/hamza/scanhub/internal/models"
)

// ErrUnknownObjective is returned when no plan exists for an objective.
var ErrUnknownObjective = errors.New("unknown objective")

// stepTemplate is one planned action inside an objective's plan.
// Fatal steps abort the remainder of the session when they fail.
type stepTemplate struct {
	Phase  string
	Tool   string
	Params map[string]interface{}
	Fatal  bool
}

// objectivePlans is the registry of built-in step plans. The objective
// shapes step selection: quick trades coverage for speed, stealth slows
// probes down, aggressive goes wide and loud.
var objectivePlans = map[models.Objective][]stepTemplate{
	models.ObjectiveQuick: {
		{Phase: "port-discovery", Tool: "nmap", Params: map[string]interface{}{"scanType": "-sT", "ports": "1-1024"}, Fatal: true},
		{Phase: "service-probe", Tool: "httpx", Params: map[string]interface{}{}},
	},
	models.ObjectiveComprehensive: {
		{Phase: "subdomain-discovery", Tool: "subfinder", Params: map[string]interface{}{}},
		{Phase: "port-discovery", Tool: "nmap", Params: map[string]interface{}{"scanType": "-sV", "ports": "1-65535"}, Fatal: true},
		{Phase: "service-probe", Tool: "httpx", Params: map[string]interface{}{}},
		{Phase: "vulnerability-scan", Tool: "nuclei", Params: map[string]interface{}{"severity": "critical,high,medium"}},
	},
	models.ObjectiveStealth: {
		{Phase: "port-discovery", Tool: "nmap", Params: map[string]interface{}{"scanType": "-sS", "timing": "-T1"}, Fatal: true},
		{Phase: "service-probe", Tool: "httpx", Params: map[string]interface{}{"rateLimit": float64(10)}},
	},
	models.ObjectiveAggressive: {
		{Phase: "port-discovery", Tool: "masscan", Params: map[string]interface{}{"rate": float64(10000)}, Fatal: true},
		{Phase: "service-probe", Tool: "nmap", Params: map[string]interface{}{"scanType": "-sV", "aggressive": true}},
		{Phase: "vulnerability-scan", Tool: "nuclei", Params: map[string]interface{}{"severity": "critical,high,medium,low"}},
	},
}

// Plan expands an objective into ordered pending steps for target.
func Plan(objective models.Objective, target string) ([]models.SmartScanStep, error) {
	templates, ok := objectivePlans[objective]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: quick, comprehensive, stealth, aggressive)", ErrUnknownObjective, objective)
	}

	steps := make([]models.SmartScanStep, 0, len(templates))
	for i, tmpl := range templates {
		steps = append(steps, models.SmartScanStep{
			Number: i + 1,
			Phase:  tmpl.Phase,
			Tool:   tmpl.Tool,
			Target: target,
			Params: tmpl.Params,
			Fatal:  tmpl.Fatal,
			Status: models.StepPending,
		})
	}
	return steps, nil
}
