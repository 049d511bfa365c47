package monitor

import (
	"text/template"
	"time"

	"github.com/Azure/ai4ops-mcp/internal/timespan"
)

// Scope selects the backend a report runs against.
type Scope string

const (
	// ScopeSubscriptions reports run on Azure Resource Graph.
	ScopeSubscriptions Scope = "subscriptions"
	// ScopeWorkspace reports run on a Log Analytics workspace.
	ScopeWorkspace Scope = "workspace"
)

// ParamKind is the accepted shape of a parameter value.
type ParamKind int

const (
	KindString ParamKind = iota
	// KindStringList also accepts a single string.
	KindStringList
)

// Parameter names shared by the reports.
const (
	ParamSubscriptionIDs = "subscription_ids"
	ParamWorkspaceID     = "workspace_id"
	ParamServerName      = "server_name"
	ParamTimespan        = "timespan"
	ParamQuery           = "query"
)

// Param describes one report parameter.
type Param struct {
	Name        string
	Kind        ParamKind
	Required    bool
	Default     string
	Description string
	// Aliases are accepted in place of Name.
	Aliases []string
}

// Definition is one entry of the report table. Definitions are built once at
// package init and never mutated.
type Definition struct {
	// Name is the MCP tool name.
	Name        string
	Description string
	Scope       Scope
	Template    string
	Params      []Param
	// RowCap is the row limit compiled into the query; 0 means uncapped.
	RowCap int
	// TimeField is the column the timespan filter applies to.
	TimeField string

	tmpl *template.Template
}

// Param returns the named parameter.
func (d *Definition) Param(name string) (Param, bool) {
	for _, p := range d.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// DefaultTimespan is the window applied when the caller sends no timespan.
// Reports without a timespan parameter get the one day fallback.
func (d *Definition) DefaultTimespan() time.Duration {
	p, ok := d.Param(ParamTimespan)
	if !ok {
		return timespan.FallbackSpan
	}
	if span, ok := timespan.ParseDuration(p.Default); ok {
		return span
	}
	return timespan.FallbackSpan
}

var (
	subscriptionParam = Param{
		Name:        ParamSubscriptionIDs,
		Kind:        KindStringList,
		Required:    true,
		Description: "List of Azure subscription IDs to query Azure Resource Graph against",
		Aliases:     []string{"subscription_id"},
	}
	workspaceParam = Param{
		Name:        ParamWorkspaceID,
		Kind:        KindString,
		Required:    true,
		Description: "The Log Analytics workspace ID (GUID)",
	}
	serverParam = Param{
		Name:        ParamServerName,
		Kind:        KindString,
		Required:    true,
		Description: "The name of the server (Computer) to query",
		Aliases:     []string{"ServerName"},
	}
	timespanParam = Param{
		Name:        ParamTimespan,
		Kind:        KindString,
		Default:     "30d",
		Description: "Time window ending now, e.g. 30d, 12h, 45m or P7D. Defaults to 30d",
	}
)

const excludedUpdates = `list "Security Update" "Update" "Hotfix"`

var definitions = []*Definition{
	{
		Name: "GetServerMetadata",
		Description: `Retrieve the server infrastructure configuration. The infrastructure could be composed by Windows Servers and/or Linux Servers.
Returns: server name (name), hybrid or native Azure server (type), Azure region (location), resource group (resourceGroup), operating system version (OsVersion),
processor model (processor), core count (coreCount), installed memory in GB (RamGB), subnet address (subnet) and whether SQL Server is installed (mssqlDiscovered).`,
		Scope:  ScopeSubscriptions,
		Params: []Param{subscriptionParam},
		Template: `resources
| where type == 'microsoft.hybridcompute/machines'
| project name, type, location, resourceGroup, OsVersion=properties.osSku, processor=properties.detectedProperties.processorNames, coreCount=properties.detectedProperties.logicalCoreCount, RamGB=properties.detectedProperties.totalPhysicalMemoryInGigabytes, subnet=properties.networkProfile.networkInterfaces[0].ipAddresses[0].address, mssqlDiscovered=properties.mssqlDiscovered`,
	},
	{
		Name: "GetSqlMetadata",
		Description: `Retrieve the SQL infrastructure configuration: SQL Server instances and their databases.
Returns: database name (DbName), SQL Server name (SrvName), server cores (SrvvCore), database size in MB (DbSizeMB), available space in MB (DbSpaceAvailableMB),
version (SrvVersion), license type (SrvLicenseType), edition (SrvEdition), database options (DatabaseOptions) and backup information (DbBackupInformation).`,
		Scope:  ScopeSubscriptions,
		Params: []Param{subscriptionParam},
		Template: `resources
| where type =~ 'microsoft.azurearcdata/sqlserverinstances'
| project id, SrvName=name, SrvVersion=tostring(properties['version']), SrvLicenseType=tostring(properties['licenseType']), SrvEdition=tostring(properties['edition']), SrvvCore=toint(properties['vCore'])
| join kind=leftouter (resources
    | where type =~ 'microsoft.azurearcdata/sqlserverinstances/databases'
    | project id, DbName=name, DatabaseOptions=properties['databaseOptions'], DbBackupInformation=properties['backupInformation'], DbSpaceAvailableMB=toint(properties['spaceAvailableMB']), DbSizeMB=toint(properties['sizeMB'])
    | extend ServerId=tostring(parse_path(tostring(parse_path(['id'])['DirectoryPath']))['DirectoryPath'])
  ) on $left.id == $right.ServerId
| project-away id, id1`,
	},
	{
		Name: "GetPatchingLevel",
		Description: `Retrieve the missed patches by server name.
Returns for each server (ServerName) the missed patch metadata (MissedPatch): name, KB, classification, published date, reboot behavior and severity.`,
		Scope:  ScopeSubscriptions,
		Params: []Param{subscriptionParam},
		Template: `patchassessmentresources
| where type == 'microsoft.hybridcompute/machines/patchassessmentresults/softwarepatches'
| project ServerName=extract(@'/machines/([^/]+)/', 1, id), MissedPatch=properties`,
	},
	{
		Name: "GetSqlBpAssessment",
		Description: `Retrieve the SQL Server Best Practices Assessment results from Log Analytics.
Returns: target type and name (TargetType, TargetName), severity (Severity), message (Message), tags (Tags), check id (CheckId), description (Description) and a help link (HelpLink),
ordered by severity.`,
		Scope:     ScopeWorkspace,
		Params:    []Param{workspaceParam, timespanParam},
		TimeField: "TimeGenerated",
		Template: `let selectedCategories = dynamic([]);
let selectedTotSev = dynamic([]);
SqlAssessment_CL
| where TimeGenerated > ago({{ .timespan }})
| extend asmt = parse_csv(RawData)
| where asmt[11] =~ 'MSSQLSERVER'
| extend AsmtId=tostring(asmt[1]), CheckId=tostring(asmt[2]), DisplayString=asmt[3], Description=tostring(asmt[4]), HelpLink=asmt[5], TargetType=case(asmt[6] == 1, 'Server', asmt[6] == 2, 'Database', ''), TargetName=tostring(asmt[7]), Severity=case(asmt[8] == 30, 'High', asmt[8] == 20, 'Medium', asmt[8] == 10, 'Low', asmt[8] == 0, 'Information', asmt[8] == 1, 'Warning', asmt[8] == 2, 'Critical', 'Passed'), Message=tostring(asmt[9]), TagsArr=split(tostring(asmt[10]), ','), Sev = toint(asmt[8])
| where (set_has_element(dynamic(['*']), CheckId) or '*' == '*') and (set_has_element(dynamic(['*']), TargetName) or '*' == '*') and set_has_element(dynamic([30, 20, 10, 0]), Sev) and (array_length(set_intersect(TagsArr, dynamic(['*']))) > 0 or '*' == '*') and (CheckId == '' and Sev == 0 or '' == '')
| extend Category = case(array_length(set_intersect(TagsArr, dynamic(['CPU', 'IO', 'Storage']))) > 0, '0', array_length(set_intersect(TagsArr, dynamic(['TraceFlag', 'Backup', 'DBCC', 'DBConfiguration', 'SystemHealth', 'Traces', 'DBFileConfiguration', 'Configuration', 'Replication', 'Agent', 'Security', 'DataIntegrity', 'MaxDOP', 'PageFile', 'Memory', 'Performance', 'Statistics']))) > 0, '1', array_length(set_intersect(TagsArr, dynamic(['UpdateIssues', 'Index', 'Naming', 'Deprecated', 'masterDB', 'QueryOptimizer', 'QueryStore', 'Indexes']))) > 0, '2', '3')
| where (Sev >= 0 and array_length(selectedTotSev) == 0 or Sev in (selectedTotSev)) and (Category in (selectedCategories) or array_length(selectedCategories) == 0)
| project TargetType, TargetName, Severity, Message, Tags=strcat_array(array_slice(TagsArr, 1, -1), ', '), CheckId, Description, HelpLink = tostring(HelpLink), SeverityCode = toint(Sev)
| order by SeverityCode desc, TargetType desc, TargetName asc
| project-away SeverityCode`,
	},
	{
		Name: "GetWinBpAssessment",
		Description: `Retrieve the Windows Server infrastructure issues and remediations.
Returns: server name (Computer), recommendation (Recommendation), impacted area (ActionArea), impacted object type (AffectedObjectType), remediation type (FocusArea),
recommendation id (RecommendationId), description (Description) and severity score (Weight). Only failed recommendations with Weight >= 5.0 are returned, highest first.`,
		Scope:     ScopeWorkspace,
		Params:    []Param{workspaceParam, timespanParam},
		RowCap:    500,
		TimeField: "TimeGenerated",
		Template: `WindowsServerAssessmentRecommendation
| where TimeGenerated > ago({{ .timespan }})
| where FocusArea != 'EnvironementFilter' and RecommendationResult == 'Failed' and Computer != ''
| extend Weight = (RecommendationScore/10)
| where Weight >= 5.0
| summarize by Computer, Recommendation, ActionArea, AffectedObjectType, FocusArea, RecommendationId, Description, Weight
| top {{ .row_cap }} by Weight desc`,
	},
	{
		Name: "GetSwChangesList",
		Description: `Find the software configuration changes for a specific server.
Returns: time of the change (TimeGenerated), server (Computer), change type (ChangeCategory), software type (SoftwareType), software name (SoftwareName),
previous state (Previous) and publisher (Publisher). Updates and hotfixes are excluded.`,
		Scope:     ScopeWorkspace,
		Params:    []Param{workspaceParam, serverParam, timespanParam},
		RowCap:    500,
		TimeField: "TimeGenerated",
		Template: `ConfigurationChange
| where TimeGenerated > ago({{ .timespan }})
| where ConfigChangeType == 'Software' and Computer == '{{ kqlEscape .server_name }}'
| where SoftwareType !in ({{ ` + excludedUpdates + ` | kqlList }})
| project TimeGenerated, Computer, ChangeCategory, SoftwareType, SoftwareName, Previous, Publisher
| top {{ .row_cap }} by TimeGenerated desc`,
	},
	{
		Name: "GetSwConfig",
		Description: `Find the software installed on a specific server, latest assessment per package.
Returns: software name (SoftwareName), publisher (Publisher), server (Computer), assessment time (TimeGenerated), software type (SoftwareType) and version (CurrentVersion).`,
		Scope:     ScopeWorkspace,
		Params:    []Param{workspaceParam, serverParam, timespanParam},
		RowCap:    1000,
		TimeField: "TimeGenerated",
		Template: `ConfigurationData
| where TimeGenerated > ago({{ .timespan }})
| where Computer == '{{ kqlEscape .server_name }}' and SoftwareName != '' and SoftwareName !~ 'unknown'
| where SoftwareType !in ({{ ` + excludedUpdates + ` "Definition Update" | kqlList }})
| summarize arg_max(TimeGenerated, *) by SoftwareName, Publisher, Computer, SoftwareType, CurrentVersion
| project SoftwareName, Publisher, Computer, TimeGenerated, SoftwareType, CurrentVersion
| top {{ .row_cap }} by SoftwareName asc`,
	},
	{
		Name: "GetAnomalies",
		Description: `Detect anomalies in the Processor and LogicalDisk metrics of your servers.
Returns hourly buckets whose average usage exceeded 80: bucket start (TimeGenerated), server (Computer), metric namespace (Namespace) and average value (AvgValue), highest first.`,
		Scope:     ScopeWorkspace,
		Params:    []Param{workspaceParam, timespanParam},
		RowCap:    100,
		TimeField: "TimeGenerated",
		Template: `InsightsMetrics
| where TimeGenerated >= ago({{ .timespan }})
| where Namespace in ({{ list "Processor" "LogicalDisk" | kqlList }})
| where isnotempty(Val) and isfinite(Val)
| summarize AvgValue = avg(Val) by Computer, Namespace, bin(TimeGenerated, 1h)
| where AvgValue > 80
| project TimeGenerated, Computer, Namespace, AvgValue
| sort by AvgValue desc
| take {{ .row_cap }}`,
	},
	{
		Name:        "resource_graph_query",
		Description: "Run a read-only KQL query on Azure Resource Graph across the given subscriptions. The query is sent as is.",
		Scope:       ScopeSubscriptions,
		Params: []Param{
			{Name: ParamQuery, Kind: KindString, Required: true, Description: "The Resource Graph KQL query to execute"},
			subscriptionParam,
		},
		Template: `{{ .query }}`,
	},
	{
		Name:        "log_analytics_query",
		Description: "Run a KQL query on an Azure Log Analytics workspace. The timespan bounds the query on the service side; the query is sent as is.",
		Scope:       ScopeWorkspace,
		Params: []Param{
			{Name: ParamQuery, Kind: KindString, Required: true, Description: "The Log Analytics KQL query to execute"},
			workspaceParam,
			timespanParam,
		},
		TimeField: "TimeGenerated",
		Template:  `{{ .query }}`,
	},
}

var definitionIndex = func() map[string]*Definition {
	index := make(map[string]*Definition, len(definitions))
	for _, d := range definitions {
		d.tmpl = template.Must(template.New(d.Name).Funcs(templateFuncs()).Option("missingkey=error").Parse(d.Template))
		index[d.Name] = d
	}
	return index
}()
