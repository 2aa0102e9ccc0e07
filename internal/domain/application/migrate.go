package application

import "maps"

// Migrate converts a legacy source into the current shape. Main applicant
// and co-applicants become role-tagged clients; spouses point at the client
// they belong to through parentClientId. Sources already in the current
// shape are returned unchanged.
func Migrate(src map[string]any) map[string]any {
	_, legacyMain := src["mainApplicant"]
	_, legacyCo := src["coApplicants"]
	if !legacyMain && !legacyCo {
		return src
	}
	main, hasMain := src["mainApplicant"].(map[string]any)
	co, hasCo := src["coApplicants"].([]any)

	out := maps.Clone(src)
	delete(out, "mainApplicant")
	delete(out, "coApplicants")

	var clients []any
	if hasMain {
		clients = appendApplicant(clients, main, RoleMainClient)
	}
	if hasCo {
		for _, el := range co {
			if a, ok := el.(map[string]any); ok {
				clients = appendApplicant(clients, a, RoleCoApplicant)
			}
		}
	}
	if clients == nil {
		clients = []any{}
	}
	out["clients"] = clients
	out["schemaVersion"] = SchemaVersion
	return out
}

func appendApplicant(clients []any, applicant map[string]any, role Role) []any {
	client, ok := applicant["client"].(map[string]any)
	if !ok {
		return clients
	}
	clients = append(clients, tagged(client, role, nil))

	if spouse, ok := applicant["spouse"].(map[string]any); ok {
		clients = append(clients, tagged(spouse, RoleSpouse, client["clientId"]))
	}
	return clients
}

func tagged(person map[string]any, role Role, parent any) map[string]any {
	c := maps.Clone(person)
	c["role"] = string(role)
	c["parentClientId"] = parent
	return c
}
