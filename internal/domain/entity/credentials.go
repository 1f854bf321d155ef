package entity

// Credentials credenciales SUNAT de una empresa para un ambiente.
// Las rutas apuntan al certificado y la llave en disco o secret store; el material
// de firma nunca se embebe en la transmisión.
type Credentials struct {
	CompanyID    string
	Environment  Environment
	RUC          string
	SolUser      string
	SolPassword  string
	CertPath     string // PEM del certificado o bundle .p12/.pfx
	KeyPath      string // PEM de la llave privada (vacío si CertPath es .p12)
	CertPassword string // contraseña del .p12
	ClientID     string // OAuth2 (API REST GRE)
	ClientSecret string
}

// Complete true si hay usuario SOL y material de firma configurados.
func (c *Credentials) Complete() bool {
	return c != nil && c.SolUser != "" && c.SolPassword != "" && c.CertPath != ""
}

// HasOAuthClient true si hay cliente OAuth2 para la API REST.
func (c *Credentials) HasOAuthClient() bool {
	return c != nil && c.ClientID != "" && c.ClientSecret != ""
}

// CompanySunatProfile datos tributarios de la empresa emisora.
type CompanySunatProfile struct {
	CompanyID            string
	OrganizationID       string
	RUC                  string
	LegalName            string
	PreferredEnvironment Environment
}
