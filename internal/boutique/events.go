package boutique

const AggregateType = "Boutique"

const EventRoleChanged = "RoleChanged"

type RoleChanged struct {
	Role Role `json:"role"`
}
