package model

const RoleTechnician = "technician"

// Principal is the authenticated caller of the technician API.
type Principal struct {
	TechnicianID string
	Name         string
	Role         string
}

func (p Principal) IsTechnician() bool {
	return p.Role == RoleTechnician
}
