package diag

// Note attaches secondary context to a diagnostic, usually another
// instruction involved in the finding.
type Note struct {
	Site Site
	Msg  string
}

// Diagnostic is a single observational finding produced by a pass.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  Site
	Notes    []Note
}

func New(sev Severity, code Code, site Site, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Message:  msg,
		Primary:  site,
	}
}

func NewError(code Code, site Site, msg string) Diagnostic {
	return New(SevError, code, site, msg)
}

func NewWarning(code Code, site Site, msg string) Diagnostic {
	return New(SevWarning, code, site, msg)
}

func NewInfo(code Code, site Site, msg string) Diagnostic {
	return New(SevInfo, code, site, msg)
}

// WithNote returns a copy of d with one more note appended.
func (d Diagnostic) WithNote(site Site, msg string) Diagnostic {
	d.Notes = append(d.Notes[:len(d.Notes):len(d.Notes)], Note{Site: site, Msg: msg})
	return d
}
