package domain

// BootstrapData carries the initial admin account details for first-run
// setup. Password may be empty, in which case one is generated and
// returned once.
type BootstrapData struct {
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}
