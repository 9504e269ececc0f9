// Defines the logical field model: which physical property name carries
// each normalized concept, per source.

package mapping

// LogicalField is one of the eight normalized concepts every item carries.
type LogicalField string

// The eight logical fields.
const (
	FieldTitle    LogicalField = "title"
	FieldStatus   LogicalField = "status"
	FieldPriority LogicalField = "priority"
	FieldOwner    LogicalField = "owner"
	FieldParent   LogicalField = "parent"
	FieldProgress LogicalField = "progress"
	FieldDueDate  LogicalField = "dueDate"
	FieldTags     LogicalField = "tags"
)

// AllFields lists the logical fields in a stable order.
var AllFields = []LogicalField{
	FieldTitle, FieldStatus, FieldPriority, FieldOwner,
	FieldParent, FieldProgress, FieldDueDate, FieldTags,
}

// Config maps logical fields to physical property names, with per-source
// overrides merged over the defaults.
type Config struct {
	Fields    map[LogicalField]string            `yaml:"fields"`
	Overrides map[string]map[LogicalField]string `yaml:"overrides,omitempty"`
}

// DefaultConfig returns the mapping used when the manifest does not
// override a field: each logical field maps to its conventional name.
func DefaultConfig() *Config {
	return &Config{
		Fields: map[LogicalField]string{
			FieldTitle:    "Name",
			FieldStatus:   "Status",
			FieldPriority: "Priority",
			FieldOwner:    "Owner",
			FieldParent:   "Parent",
			FieldProgress: "Progress",
			FieldDueDate:  "Due Date",
			FieldTags:     "Tags",
		},
	}
}

// Effective returns the physical name for each logical field for one
// source: defaults overlaid with that source's overrides. The returned map
// is a copy.
func (c *Config) Effective(sourceID string) map[LogicalField]string {
	eff := make(map[LogicalField]string, len(c.Fields))
	for _, f := range AllFields {
		if name, ok := c.Fields[f]; ok {
			eff[f] = name
		} else {
			eff[f] = DefaultConfig().Fields[f]
		}
	}
	for f, name := range c.Overrides[sourceID] {
		eff[f] = name
	}
	return eff
}

// AliasTable maps a logical field to ordered candidate physical names,
// consulted when neither exact nor case-insensitive lookup matches.
type AliasTable map[LogicalField][]string

// DefaultAliases returns the built-in alias table. Order matters: earlier
// candidates win.
func DefaultAliases() AliasTable {
	return AliasTable{
		FieldTitle:    {"Name", "Title", "Task", "Task Name", "Item"},
		FieldStatus:   {"Status", "State", "Stage", "Phase"},
		FieldPriority: {"Priority", "Importance", "Severity", "Urgency"},
		FieldOwner:    {"Owner", "Assignee", "Assigned To", "Person", "Lead"},
		FieldParent:   {"Parent", "Parent Task", "Parent Item", "Epic", "Blocked By"},
		FieldProgress: {"Progress", "Percent Complete", "Completion", "% Done"},
		FieldDueDate:  {"Due Date", "Due", "Deadline", "Target Date", "End Date"},
		FieldTags:     {"Tags", "Labels", "Categories", "Topics"},
	}
}

// Merge returns a table where entries in over replace the receiver's.
func (t AliasTable) Merge(over AliasTable) AliasTable {
	merged := make(AliasTable, len(t))
	for f, names := range t {
		merged[f] = names
	}
	for f, names := range over {
		merged[f] = names
	}
	return merged
}
