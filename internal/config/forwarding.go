package config

// Forwarding is the top-level YAML structure of the forwarding config file.
// It exists so operators can pause a vendor (kill switch) without touching
// credentials or restarting the service.
type Forwarding struct {
	Vendors map[string]VendorConf `yaml:"vendors"`
}

// VendorConf tunes one vendor's forwarder.
type VendorConf struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

// DefaultForwarding enables every vendor; kill switches are opt-in.
func DefaultForwarding() *Forwarding {
	return &Forwarding{Vendors: map[string]VendorConf{}}
}

// VendorEnabled reports whether a vendor's kill switch is off. A vendor
// absent from the file is enabled.
func (f *Forwarding) VendorEnabled(name string) bool {
	if f == nil {
		return true
	}
	conf, ok := f.Vendors[name]
	if !ok {
		return true
	}
	return conf.Enabled
}

// VendorEndpoint returns a configured endpoint override, or "".
func (f *Forwarding) VendorEndpoint(name string) string {
	if f == nil {
		return ""
	}
	return f.Vendors[name].Endpoint
}
