package engine

import "github.com/sentinelsoc/triage-engine/internal/models"

type mitreMapping struct {
	tactics    []models.MITRETactic
	techniques []models.MITRETechnique
}

// Static ATT&CK classification per threat category. Attached to every result
// so downstream systems can correlate across detection sources.
var mitreByCategory = map[models.ThreatCategory]mitreMapping{
	models.CategoryBotTraffic: {
		tactics:    []models.MITRETactic{{ID: "TA0043", Name: "Reconnaissance"}},
		techniques: []models.MITRETechnique{{ID: "T1595", Name: "Active Scanning"}},
	},
	models.CategoryCredentialStuffing: {
		tactics: []models.MITRETactic{{ID: "TA0006", Name: "Credential Access"}},
		techniques: []models.MITRETechnique{
			{ID: "T1110", Name: "Brute Force"},
			{ID: "T1110.004", Name: "Credential Stuffing"},
		},
	},
	models.CategoryProxyNetwork: {
		tactics:    []models.MITRETactic{{ID: "TA0011", Name: "Command and Control"}},
		techniques: []models.MITRETechnique{{ID: "T1090", Name: "Proxy"}},
	},
	models.CategoryDeviceCompromise: {
		tactics: []models.MITRETactic{
			{ID: "TA0004", Name: "Privilege Escalation"},
			{ID: "TA0005", Name: "Defense Evasion"},
		},
		techniques: []models.MITRETechnique{{ID: "T1068", Name: "Exploitation for Privilege Escalation"}},
	},
	models.CategoryAnomalyDetection: {
		tactics:    []models.MITRETactic{{ID: "TA0007", Name: "Discovery"}},
		techniques: []models.MITRETechnique{{ID: "T1046", Name: "Network Service Discovery"}},
	},
	models.CategoryRateLimitBreach: {
		tactics:    []models.MITRETactic{{ID: "TA0040", Name: "Impact"}},
		techniques: []models.MITRETechnique{{ID: "T1499", Name: "Endpoint Denial of Service"}},
	},
	models.CategoryGeoAnomaly: {
		tactics:    []models.MITRETactic{{ID: "TA0001", Name: "Initial Access"}},
		techniques: []models.MITRETechnique{{ID: "T1078", Name: "Valid Accounts"}},
	},
}

func mitreFor(category models.ThreatCategory) ([]models.MITRETactic, []models.MITRETechnique) {
	m, ok := mitreByCategory[category]
	if !ok {
		return nil, nil
	}
	return m.tactics, m.techniques
}
