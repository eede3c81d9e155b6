package types

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// ValidationError reports every problem found in a desired state before any
// call to the authority is made
type ValidationError struct {
	Kind     ResourceKind
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Kind, strings.Join(e.Problems, "; "))
}

type problems struct {
	kind ResourceKind
	list []string
}

func (p *problems) add(format string, args ...any) {
	p.list = append(p.list, fmt.Sprintf(format, args...))
}

func (p *problems) require(name, value string) {
	if strings.TrimSpace(value) == "" {
		p.add("missing required field %s", name)
	}
}

func (p *problems) requireList(name string, value []string) {
	if len(value) == 0 {
		p.add("missing required field %s", name)
	}
}

func (p *problems) choice(name, value string, choices []string) {
	if value != "" && !slices.Contains(choices, value) {
		p.add("%s must be one of [%s], got %q", name, strings.Join(choices, ", "), value)
	}
}

func (p *problems) err() error {
	if len(p.list) == 0 {
		return nil
	}
	return &ValidationError{Kind: p.kind, Problems: p.list}
}

// Validate checks the collection for the fields the requested state needs
func (s CollectionSpec) Validate(state State) error {
	p := &problems{kind: KindCollection}
	p.require("slug", s.Slug)
	if state == StateAbsent {
		return p.err()
	}

	p.require("display_name", s.DisplayName)
	p.requireList("admin_emails", s.AdminEmails)

	name, count := s.DeviceType.Selected()
	switch {
	case count == 0:
		p.add("device_type requires one of aws_vm, azure_vm, gcp_vm, tpm")
	case count > 1:
		p.add("device_type options aws_vm, azure_vm, gcp_vm, tpm are mutually exclusive")
	default:
		dt := s.DeviceType
		switch name {
		case "aws_vm":
			p.requireList("device_type.aws_vm.accounts", dt.AWSVM.Accounts)
		case "azure_vm":
			p.require("device_type.azure_vm.tenant_id", dt.AzureVM.TenantID)
			p.requireList("device_type.azure_vm.resource_groups", dt.AzureVM.ResourceGroups)
		case "gcp_vm":
			p.requireList("device_type.gcp_vm.project_ids", dt.GCPVM.ProjectIDs)
			p.requireList("device_type.gcp_vm.service_accounts", dt.GCPVM.ServiceAccounts)
		}
	}
	return p.err()
}

// Validate checks the instance for the fields the requested state needs
func (s InstanceSpec) Validate(state State) error {
	p := &problems{kind: KindInstance}
	p.require("collection_slug", s.CollectionSlug)
	p.require("instance_id", s.InstanceID)
	return p.err()
}

// Validate checks the workload for the fields the requested state needs and
// for the cross-field rules of its policies
func (s WorkloadSpec) Validate(state State) error {
	p := &problems{kind: KindWorkload}
	p.require("collection_slug", s.CollectionSlug)
	p.require("workload_slug", s.WorkloadSlug)
	if state == StateAbsent {
		return p.err()
	}

	p.require("display_name", s.DisplayName)
	p.require("workload_type", s.WorkloadType)
	p.choice("workload_type", s.WorkloadType, WorkloadTypes)
	p.requireList("admin_emails", s.AdminEmails)

	if ci := s.CertificateInfo; ci != nil {
		p.require("certificate_info.type", ci.Type)
		p.choice("certificate_info.type", ci.Type, CertificateTypes)
		if ci.Duration != "" {
			if _, err := time.ParseDuration(ci.Duration); err != nil {
				p.add("certificate_info.duration %q is not a valid duration", ci.Duration)
			}
		}
	}

	if ki := s.KeyInfo; ki != nil {
		p.require("key_info.type", ki.Type)
		p.choice("key_info.type", ki.Type, KeyTypes)
		p.choice("key_info.format", ki.Format, KeyFormats)
	}

	if ri := s.ReloadInfo; ri != nil {
		p.require("reload_info.method", ri.Method)
		p.choice("reload_info.method", ri.Method, ReloadMethods)
		switch ri.Method {
		case "DBUS":
			p.require("reload_info.unit_name", ri.UnitName)
		case "SIGNAL":
			p.require("reload_info.pid_file", ri.PIDFile)
			if ri.Signal == nil {
				p.add("missing required field reload_info.signal")
			}
		}
		if ri.UnitName != "" && ri.PIDFile != "" {
			p.add("reload_info.unit_name and reload_info.pid_file are mutually exclusive")
		}
		if ri.UnitName != "" && ri.Signal != nil {
			p.add("reload_info.unit_name and reload_info.signal are mutually exclusive")
		}
	}

	return p.err()
}
