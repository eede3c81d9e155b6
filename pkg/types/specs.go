package types

// CollectionSpec is the operator-declared state of a device collection
type CollectionSpec struct {
	Slug        string      `json:"slug,omitempty" yaml:"slug"`
	DisplayName string      `json:"display_name,omitempty" yaml:"display_name"`
	AdminEmails []string    `json:"admin_emails,omitempty" yaml:"admin_emails"`
	DeviceType  *DeviceType `json:"device_type,omitempty" yaml:"device_type"`
}

// Identity returns the collection's natural key
func (s CollectionSpec) Identity() Identity {
	return Identity{CollectionSlug: s.Slug}
}

// DeviceType holds exactly one device-type-specific configuration
type DeviceType struct {
	AWSVM   *AWSVM   `json:"aws_vm,omitempty" yaml:"aws_vm"`
	AzureVM *AzureVM `json:"azure_vm,omitempty" yaml:"azure_vm"`
	GCPVM   *GCPVM   `json:"gcp_vm,omitempty" yaml:"gcp_vm"`
	TPM     *TPM     `json:"tpm,omitempty" yaml:"tpm"`
}

// Selected returns the local key of the configured device type and the
// number of device types that are set
func (d *DeviceType) Selected() (string, int) {
	if d == nil {
		return "", 0
	}
	var name string
	count := 0
	if d.AWSVM != nil {
		name, count = "aws_vm", count+1
	}
	if d.AzureVM != nil {
		name, count = "azure_vm", count+1
	}
	if d.GCPVM != nil {
		name, count = "gcp_vm", count+1
	}
	if d.TPM != nil {
		name, count = "tpm", count+1
	}
	return name, count
}

// AWSVM configures an AWS instance-identity provisioner
type AWSVM struct {
	Accounts          []string `json:"accounts,omitempty" yaml:"accounts"`
	DisableCustomSANs *bool    `json:"disable_custom_sans,omitempty" yaml:"disable_custom_sans"`
}

// AzureVM configures an Azure managed-identity provisioner
type AzureVM struct {
	TenantID          string   `json:"tenant_id,omitempty" yaml:"tenant_id"`
	ResourceGroups    []string `json:"resource_groups,omitempty" yaml:"resource_groups"`
	Audience          string   `json:"audience,omitempty" yaml:"audience"`
	DisableCustomSANs *bool    `json:"disable_custom_sans,omitempty" yaml:"disable_custom_sans"`
}

// GCPVM configures a GCP instance-identity provisioner
type GCPVM struct {
	ProjectIDs        []string `json:"project_ids,omitempty" yaml:"project_ids"`
	ServiceAccounts   []string `json:"service_accounts,omitempty" yaml:"service_accounts"`
	DisableCustomSANs *bool    `json:"disable_custom_sans,omitempty" yaml:"disable_custom_sans"`
}

// TPM configures device attestation
type TPM struct {
	AttestorRoots         string `json:"attestor_roots,omitempty" yaml:"attestor_roots"`
	AttestorIntermediates string `json:"attestor_intermediates,omitempty" yaml:"attestor_intermediates"`
	ForceCN               *bool  `json:"force_cn,omitempty" yaml:"force_cn"`
	RequireEAB            *bool  `json:"require_eab,omitempty" yaml:"require_eab"`
}

// InstanceSpec is the operator-declared state of a collection instance
type InstanceSpec struct {
	CollectionSlug string            `json:"collection_slug,omitempty" yaml:"collection_slug"`
	InstanceID     string            `json:"instance_id,omitempty" yaml:"instance_id"`
	Metadata       map[string]string `json:"metadata" yaml:"metadata"`
}

// Identity returns the instance's natural key
func (s InstanceSpec) Identity() Identity {
	return Identity{CollectionSlug: s.CollectionSlug, InstanceID: s.InstanceID}
}

// WorkloadSpec is the operator-declared state of a workload
type WorkloadSpec struct {
	CollectionSlug        string           `json:"collection_slug,omitempty" yaml:"collection_slug"`
	WorkloadSlug          string           `json:"workload_slug,omitempty" yaml:"workload_slug"`
	DisplayName           string           `json:"display_name,omitempty" yaml:"display_name"`
	WorkloadType          string           `json:"workload_type,omitempty" yaml:"workload_type"`
	AdminEmails           []string         `json:"admin_emails,omitempty" yaml:"admin_emails"`
	CertificateInfo       *CertificateInfo `json:"certificate_info,omitempty" yaml:"certificate_info"`
	KeyInfo               *KeyInfo         `json:"key_info,omitempty" yaml:"key_info"`
	ReloadInfo            *ReloadInfo      `json:"reload_info,omitempty" yaml:"reload_info"`
	Hooks                 *Hooks           `json:"hooks,omitempty" yaml:"hooks"`
	StaticSANs            []string         `json:"static_sans,omitempty" yaml:"static_sans"`
	DeviceMetadataKeySANs []string         `json:"device_metadata_key_sans,omitempty" yaml:"device_metadata_key_sans"`
}

// Identity returns the workload's natural key
func (s WorkloadSpec) Identity() Identity {
	return Identity{CollectionSlug: s.CollectionSlug, WorkloadSlug: s.WorkloadSlug}
}

// CertificateInfo is the certificate policy of a workload
type CertificateInfo struct {
	Type     string `json:"type,omitempty" yaml:"type"`
	Duration string `json:"duration,omitempty" yaml:"duration"`
	CrtFile  string `json:"crt_file,omitempty" yaml:"crt_file"`
	KeyFile  string `json:"key_file,omitempty" yaml:"key_file"`
	RootFile string `json:"root_file,omitempty" yaml:"root_file"`
	UID      *int   `json:"uid,omitempty" yaml:"uid"`
	GID      *int   `json:"gid,omitempty" yaml:"gid"`
	Mode     *int   `json:"mode,omitempty" yaml:"mode"`
}

// KeyInfo is the key policy of a workload
type KeyInfo struct {
	Type    string `json:"type,omitempty" yaml:"type"`
	Format  string `json:"format,omitempty" yaml:"format"`
	PubFile string `json:"pub_file,omitempty" yaml:"pub_file"`
}

// ReloadInfo tells the agent how to reload the workload after renewal
type ReloadInfo struct {
	Method   string `json:"method,omitempty" yaml:"method"`
	PIDFile  string `json:"pid_file,omitempty" yaml:"pid_file"`
	Signal   *int   `json:"signal,omitempty" yaml:"signal"`
	UnitName string `json:"unit_name,omitempty" yaml:"unit_name"`
}

// Hooks are commands run around certificate signing and renewal
type Hooks struct {
	Sign  *Hook `json:"sign,omitempty" yaml:"sign"`
	Renew *Hook `json:"renew,omitempty" yaml:"renew"`
}

// Hook is a set of shell commands
type Hook struct {
	Shell   string   `json:"shell,omitempty" yaml:"shell"`
	Before  []string `json:"before,omitempty" yaml:"before"`
	After   []string `json:"after,omitempty" yaml:"after"`
	OnError []string `json:"on_error,omitempty" yaml:"on_error"`
}

// Enumerations accepted by the authority
var (
	WorkloadTypes = []string{
		"etcd", "generic", "git", "grafana", "haproxy", "httpd", "kafka", "mysql",
		"nginx", "nodejs", "openvpn", "postgres", "redis", "tomcat", "zookeeper",
	}
	CertificateTypes = []string{"X509", "SSH_USER", "SSH_HOST"}
	KeyTypes         = []string{
		"DEFAULT", "ECDSA_P256", "ECDSA_P384", "ECDSA_P521",
		"RSA_2048", "RSA_3072", "RSA_4096", "ED25519",
	}
	KeyFormats    = []string{"DEFAULT", "PKCS8", "OPENSSH", "DER"}
	ReloadMethods = []string{"AUTOMATIC", "CUSTOM", "SIGNAL", "DBUS"}
)
