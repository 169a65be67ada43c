package correlate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"lattice-siem/internal/schema"
)

// Rule is one stateless detection. Evaluate scans the supplied window and
// returns the first qualifying group's incident plus the dedup key for the
// engine's TTL gate. Rules never mutate events and keep no state of their
// own; the shared Deduper is the only cross-invocation memory.
type Rule interface {
	Name() string
	Evaluate(events []*schema.NormalizedEvent, now time.Time) (schema.Incident, string, bool)
}

// ---------------------------------------------------------------------
// shared helpers
// ---------------------------------------------------------------------

// withinWindow filters events to those received in [now-window, now].
// Events with a zero ReceivedAt are skipped (rule evaluation error policy:
// skip the offending event, never fail the rule).
func withinWindow(events []*schema.NormalizedEvent, now time.Time, window time.Duration) []*schema.NormalizedEvent {
	start := now.Add(-window)
	var out []*schema.NormalizedEvent
	for _, e := range events {
		if e == nil || e.ReceivedAt.IsZero() {
			continue
		}
		if e.ReceivedAt.Before(start) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// groupBy buckets events by key, returning the bucket map plus the keys in
// sorted order so "first qualifying group wins" is deterministic.
func groupBy(events []*schema.NormalizedEvent, keyFn func(*schema.NormalizedEvent) string) (map[string][]*schema.NormalizedEvent, []string) {
	groups := make(map[string][]*schema.NormalizedEvent)
	for _, e := range events {
		k := keyFn(e)
		groups[k] = append(groups[k], e)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return groups, keys
}

func uniqueSorted(values []string) []string {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func collect(group []*schema.NormalizedEvent, pick func(*schema.NormalizedEvent) string) []string {
	out := make([]string, 0, len(group))
	for _, e := range group {
		out = append(out, pick(e))
	}
	return uniqueSorted(out)
}

func evidenceIDs(group []*schema.NormalizedEvent) []string {
	var out []string
	for _, e := range group {
		if e.EventID != "" {
			out = append(out, e.EventID)
		}
	}
	return out
}

func timeBounds(group []*schema.NormalizedEvent) (first, last time.Time) {
	for _, e := range group {
		if first.IsZero() || e.ReceivedAt.Before(first) {
			first = e.ReceivedAt
		}
		if e.ReceivedAt.After(last) {
			last = e.ReceivedAt
		}
	}
	return first, last
}

// fillAsset copies asset enrichment from the first evidence event.
func fillAsset(inc *schema.Incident, group []*schema.NormalizedEvent) {
	if len(group) == 0 {
		return
	}
	e := group[0]
	inc.AssetID = e.AssetID
	inc.AssetCriticality = e.AssetCriticality
	inc.AssetOwner = e.AssetOwner
	inc.AssetZone = e.AssetZone
}

// fieldString reads the first non-empty alias from the raw field map.
func fieldString(e *schema.NormalizedEvent, aliases ...string) string {
	for _, a := range aliases {
		if v, ok := e.Fields[a]; ok {
			if s := strings.TrimSpace(fmt.Sprintf("%v", v)); s != "" {
				return s
			}
		}
	}
	return ""
}

func windowSeconds(window time.Duration) int {
	return int(window / time.Second)
}

// ---------------------------------------------------------------------
// 1) VPN brute force
// ---------------------------------------------------------------------

// BruteForceRule fires when one source IP accumulates Threshold or more
// VPN_LOGIN_FAIL events inside the window.
type BruteForceRule struct {
	Window    time.Duration
	Threshold int
}

func (r BruteForceRule) Name() string { return "BRUTEFORCE_VPN" }

func (r BruteForceRule) Evaluate(events []*schema.NormalizedEvent, now time.Time) (schema.Incident, string, bool) {
	var candidates []*schema.NormalizedEvent
	for _, e := range withinWindow(events, now, r.Window) {
		if e.EventType == "VPN_LOGIN_FAIL" && e.SrcIP != "" {
			candidates = append(candidates, e)
		}
	}

	groups, keys := groupBy(candidates, func(e *schema.NormalizedEvent) string { return e.SrcIP })
	for _, src := range keys {
		group := groups[src]
		if len(group) < r.Threshold {
			continue
		}

		first, last := timeBounds(group)
		inc := schema.Incident{
			Type:             "BRUTEFORCE_VPN",
			Title:            fmt.Sprintf("Possible VPN bruteforce from %s", src),
			SrcIP:            src,
			Users:            collect(group, func(e *schema.NormalizedEvent) string { return e.User }),
			DstIPs:           collect(group, func(e *schema.NormalizedEvent) string { return e.DstIP }),
			Count:            len(group),
			WindowSeconds:    windowSeconds(r.Window),
			FirstSeen:        first,
			LastSeen:         last,
			Severity:         "critical",
			Priority:         schema.PriorityCritical,
			Risk:             95,
			EvidenceEventIDs: evidenceIDs(group),
		}
		fillAsset(&inc, group)

		key := fmt.Sprintf("BRUTEFORCE_VPN:%s:%d:%d", src, windowSeconds(r.Window), r.Threshold)
		return inc, key, true
	}
	return schema.Incident{}, "", false
}

// ---------------------------------------------------------------------
// 2) Port scan
// ---------------------------------------------------------------------

// PortScanRule fires when one source IP probes PortsThreshold or more
// distinct destination ports inside the window.
type PortScanRule struct {
	Window         time.Duration
	PortsThreshold int
}

func (r PortScanRule) Name() string { return "PORT_SCAN" }

func (r PortScanRule) Evaluate(events []*schema.NormalizedEvent, now time.Time) (schema.Incident, string, bool) {
	var scans []*schema.NormalizedEvent
	for _, e := range withinWindow(events, now, r.Window) {
		if e.EventType == "PORTSCAN" && e.SrcIP != "" {
			scans = append(scans, e)
		}
	}

	groups, keys := groupBy(scans, func(e *schema.NormalizedEvent) string { return e.SrcIP })
	for _, src := range keys {
		group := groups[src]

		portSet := make(map[int]struct{})
		for _, e := range group {
			if e.DstPort != 0 {
				portSet[e.DstPort] = struct{}{}
			}
		}
		if len(portSet) < r.PortsThreshold {
			continue
		}
		ports := make([]int, 0, len(portSet))
		for p := range portSet {
			ports = append(ports, p)
		}
		sort.Ints(ports)

		first, last := timeBounds(group)
		inc := schema.Incident{
			Type:             "PORT_SCAN",
			Title:            fmt.Sprintf("Port scan from %s (ports=%d)", src, len(ports)),
			SrcIP:            src,
			DstIPs:           collect(group, func(e *schema.NormalizedEvent) string { return e.DstIP }),
			Ports:            ports,
			Count:            len(group),
			WindowSeconds:    windowSeconds(r.Window),
			FirstSeen:        first,
			LastSeen:         last,
			Severity:         "high",
			Priority:         schema.PriorityHigh,
			Risk:             80,
			EvidenceEventIDs: evidenceIDs(group),
		}
		fillAsset(&inc, group)

		key := fmt.Sprintf("PORTSCAN:%s:%d:%d", src, windowSeconds(r.Window), len(ports))
		return inc, key, true
	}
	return schema.Incident{}, "", false
}

// ---------------------------------------------------------------------
// 3) Malware detected
// ---------------------------------------------------------------------

// MalwareRule fires on any AV_DETECT / MALWARE_DETECT activity on a host
// inside the window.
type MalwareRule struct {
	Window time.Duration
}

func (r MalwareRule) Name() string { return "MALWARE_DETECTED" }

func (r MalwareRule) Evaluate(events []*schema.NormalizedEvent, now time.Time) (schema.Incident, string, bool) {
	var det []*schema.NormalizedEvent
	for _, e := range withinWindow(events, now, r.Window) {
		if e.EventType == "AV_DETECT" || e.EventType == "MALWARE_DETECT" {
			det = append(det, e)
		}
	}

	groups, keys := groupBy(det, hostOrUnknown)
	for _, host := range keys {
		group := groups[host]

		first, last := timeBounds(group)
		inc := schema.Incident{
			Type:             "MALWARE_DETECTED",
			Title:            fmt.Sprintf("Malware detected on host %s", host),
			Host:             host,
			Users:            collect(group, func(e *schema.NormalizedEvent) string { return e.User }),
			Count:            len(group),
			WindowSeconds:    windowSeconds(r.Window),
			FirstSeen:        first,
			LastSeen:         last,
			Severity:         "critical",
			Priority:         schema.PriorityCritical,
			Risk:             95,
			EvidenceEventIDs: evidenceIDs(group),
		}
		fillAsset(&inc, group)

		key := fmt.Sprintf("MALWARE:%s:%d", host, windowSeconds(r.Window))
		return inc, key, true
	}
	return schema.Incident{}, "", false
}

func hostOrUnknown(e *schema.NormalizedEvent) string {
	if e.Host != "" {
		return e.Host
	}
	return "unknown"
}

// ---------------------------------------------------------------------
// 3b) AV actions: tamper / clean failure / quarantine
// ---------------------------------------------------------------------

// AVActionsRule fires on antivirus action events, classifying the incident
// by the most severe action present on the host: disabled protection beats
// a failed clean beats a plain quarantine.
type AVActionsRule struct {
	Window time.Duration
}

func (r AVActionsRule) Name() string { return "AV_ACTIONS" }

func (r AVActionsRule) Evaluate(events []*schema.NormalizedEvent, now time.Time) (schema.Incident, string, bool) {
	interesting := map[string]bool{"AV_QUARANTINE": true, "AV_CLEAN_FAIL": true, "AV_DISABLED": true}

	var items []*schema.NormalizedEvent
	for _, e := range withinWindow(events, now, r.Window) {
		if interesting[e.EventType] {
			items = append(items, e)
		}
	}

	groups, keys := groupBy(items, hostOrUnknown)
	for _, host := range keys {
		group := groups[host]

		types := make(map[string]bool)
		for _, e := range group {
			types[e.EventType] = true
		}

		var (
			itype    string
			title    string
			severity string
			priority schema.Priority
			risk     int
		)
		switch {
		case types["AV_DISABLED"]:
			itype = "AV_TAMPER"
			title = fmt.Sprintf("Antivirus protection disabled on host %s", host)
			severity, priority, risk = "critical", schema.PriorityCritical, 98
		case types["AV_CLEAN_FAIL"]:
			itype = "AV_CLEAN_FAILED"
			title = fmt.Sprintf("Antivirus failed to clean malware on host %s", host)
			severity, priority, risk = "high", schema.PriorityHigh, 90
		default:
			itype = "AV_QUARANTINE"
			title = fmt.Sprintf("Antivirus quarantined a file on host %s", host)
			severity, priority, risk = "medium", schema.PriorityMedium, 70
		}

		typeList := make([]string, 0, len(types))
		for t := range types {
			typeList = append(typeList, t)
		}
		sort.Strings(typeList)

		first, last := timeBounds(group)
		inc := schema.Incident{
			Type:             itype,
			Title:            title,
			Host:             host,
			Users:            collect(group, func(e *schema.NormalizedEvent) string { return e.User }),
			Events:           typeList,
			Count:            len(group),
			WindowSeconds:    windowSeconds(r.Window),
			FirstSeen:        first,
			LastSeen:         last,
			Severity:         severity,
			Priority:         priority,
			Risk:             risk,
			EvidenceEventIDs: evidenceIDs(group),
		}
		fillAsset(&inc, group)

		key := fmt.Sprintf("%s:%s:%d", itype, host, windowSeconds(r.Window))
		return inc, key, true
	}
	return schema.Incident{}, "", false
}

// ---------------------------------------------------------------------
// 3c) EDR detections
// ---------------------------------------------------------------------

// EDRDetectionsRule fires on EDR detection events, classifying by the most
// critical detection present on the host.
type EDRDetectionsRule struct {
	Window time.Duration
}

func (r EDRDetectionsRule) Name() string { return "EDR_DETECTIONS" }

func (r EDRDetectionsRule) Evaluate(events []*schema.NormalizedEvent, now time.Time) (schema.Incident, string, bool) {
	interesting := map[string]bool{
		"EDR_SUSPICIOUS_PROCESS":    true,
		"EDR_CREDENTIAL_DUMP":       true,
		"EDR_RANSOMWARE_BEHAVIOR":   true,
		"EDR_LATERAL_TOOL":          true,
		"EDR_REMOTE_SERVICE_CREATE": true,
		"EDR_BLOCK":                 true,
	}

	var items []*schema.NormalizedEvent
	for _, e := range withinWindow(events, now, r.Window) {
		if interesting[e.EventType] {
			items = append(items, e)
		}
	}

	groups, keys := groupBy(items, hostOrUnknown)
	for _, host := range keys {
		group := groups[host]

		types := make(map[string]bool)
		for _, e := range group {
			types[e.EventType] = true
		}

		var (
			itype    string
			title    string
			severity string
			priority schema.Priority
			risk     int
		)
		switch {
		case types["EDR_RANSOMWARE_BEHAVIOR"]:
			itype = "RANSOMWARE_BEHAVIOR"
			title = fmt.Sprintf("EDR detected ransomware-like behavior on host %s", host)
			severity, priority, risk = "critical", schema.PriorityCritical, 99
		case types["EDR_CREDENTIAL_DUMP"]:
			itype = "CREDENTIAL_DUMP"
			title = fmt.Sprintf("EDR detected credential dumping on host %s", host)
			severity, priority, risk = "critical", schema.PriorityCritical, 97
		case types["EDR_LATERAL_TOOL"] || types["EDR_REMOTE_SERVICE_CREATE"]:
			itype = "EDR_LATERAL_ACTIVITY"
			title = fmt.Sprintf("EDR detected lateral movement tooling on host %s", host)
			severity, priority, risk = "high", schema.PriorityHigh, 92
		default:
			itype = "SUSPICIOUS_PROCESS"
			title = fmt.Sprintf("EDR detected suspicious process on host %s", host)
			severity, priority, risk = "high", schema.PriorityHigh, 85
		}

		typeList := make([]string, 0, len(types))
		for t := range types {
			typeList = append(typeList, t)
		}
		sort.Strings(typeList)

		first, last := timeBounds(group)
		inc := schema.Incident{
			Type:             itype,
			Title:            title,
			Host:             host,
			Users:            collect(group, func(e *schema.NormalizedEvent) string { return e.User }),
			Events:           typeList,
			Count:            len(group),
			WindowSeconds:    windowSeconds(r.Window),
			FirstSeen:        first,
			LastSeen:         last,
			Severity:         severity,
			Priority:         priority,
			Risk:             risk,
			EvidenceEventIDs: evidenceIDs(group),
		}
		fillAsset(&inc, group)

		key := fmt.Sprintf("%s:%s:%d", itype, host, windowSeconds(r.Window))
		return inc, key, true
	}
	return schema.Incident{}, "", false
}

// ---------------------------------------------------------------------
// 3d) IAM password spray
// ---------------------------------------------------------------------

// PasswordSprayRule fires when one source IP fails authentication against
// UserThreshold or more distinct users inside the window.
type PasswordSprayRule struct {
	Window        time.Duration
	UserThreshold int
}

func (r PasswordSprayRule) Name() string { return "IAM_PASSWORD_SPRAY" }

func (r PasswordSprayRule) Evaluate(events []*schema.NormalizedEvent, now time.Time) (schema.Incident, string, bool) {
	type sprayEvent struct {
		event *schema.NormalizedEvent
		user  string
	}

	bySrc := make(map[string][]sprayEvent)
	for _, e := range withinWindow(events, now, r.Window) {
		if e.EventType != "IAM_AUTH_FAIL" {
			continue
		}
		src := e.SrcIP
		if src == "" {
			src = fieldString(e, "src")
		}
		user := e.User
		if user == "" {
			user = fieldString(e, "suser")
		}
		if src == "" || user == "" {
			continue
		}
		bySrc[src] = append(bySrc[src], sprayEvent{event: e, user: user})
	}

	srcs := make([]string, 0, len(bySrc))
	for s := range bySrc {
		srcs = append(srcs, s)
	}
	sort.Strings(srcs)

	for _, src := range srcs {
		group := bySrc[src]

		var userList []string
		raw := make([]*schema.NormalizedEvent, 0, len(group))
		for _, se := range group {
			userList = append(userList, se.user)
			raw = append(raw, se.event)
		}
		users := uniqueSorted(userList)
		if len(users) < r.UserThreshold {
			continue
		}

		host := raw[0].Host
		if host == "" {
			host = "dc"
		}

		first, last := timeBounds(raw)
		inc := schema.Incident{
			Type:             "IAM_PASSWORD_SPRAY",
			Title:            fmt.Sprintf("Possible password spray from %s against %d users", src, len(users)),
			SrcIP:            src,
			Host:             host,
			Users:            users,
			Count:            len(raw),
			UniqueUsers:      len(users),
			WindowSeconds:    windowSeconds(r.Window),
			FirstSeen:        first,
			LastSeen:         last,
			Severity:         "high",
			Priority:         schema.PriorityHigh,
			Risk:             88,
			EvidenceEventIDs: evidenceIDs(raw),
		}
		fillAsset(&inc, raw)

		// Distinct-user count is part of the key so an escalating spray
		// re-fires even inside the TTL.
		key := fmt.Sprintf("IAM_SPRAY:%s:%d:%d:%d", src, windowSeconds(r.Window), r.UserThreshold, len(users))
		return inc, key, true
	}
	return schema.Incident{}, "", false
}

// ---------------------------------------------------------------------
// 3e) Endpoint login-failure burst
// ---------------------------------------------------------------------

// EndpointLoginFailRule fires on Threshold or more ENDPOINT_LOGIN_FAIL
// events sharing the same (source IP, host, user) triple.
type EndpointLoginFailRule struct {
	Window    time.Duration
	Threshold int
}

func (r EndpointLoginFailRule) Name() string { return "ENDPOINT_BRUTEFORCE" }

func (r EndpointLoginFailRule) Evaluate(events []*schema.NormalizedEvent, now time.Time) (schema.Incident, string, bool) {
	type triple struct{ src, host, user string }

	byKey := make(map[triple][]*schema.NormalizedEvent)
	for _, e := range withinWindow(events, now, r.Window) {
		if e.EventType != "ENDPOINT_LOGIN_FAIL" {
			continue
		}
		src := e.SrcIP
		if src == "" {
			src = fieldString(e, "src")
		}
		if src == "" {
			continue
		}
		host := e.Host
		if host == "" {
			host = "unknown"
		}
		user := e.User
		if user == "" {
			user = "unknown"
		}
		k := triple{src: src, host: host, user: user}
		byKey[k] = append(byKey[k], e)
	}

	triples := make([]triple, 0, len(byKey))
	for k := range byKey {
		triples = append(triples, k)
	}
	sort.Slice(triples, func(i, j int) bool {
		a, b := triples[i], triples[j]
		if a.src != b.src {
			return a.src < b.src
		}
		if a.host != b.host {
			return a.host < b.host
		}
		return a.user < b.user
	})

	for _, k := range triples {
		group := byKey[k]
		if len(group) < r.Threshold {
			continue
		}

		first, last := timeBounds(group)
		inc := schema.Incident{
			Type:             "ENDPOINT_BRUTEFORCE",
			Title:            fmt.Sprintf("Repeated endpoint login failures (RDP) from %s on %s for %s", k.src, k.host, k.user),
			SrcIP:            k.src,
			Host:             k.host,
			User:             k.user,
			Count:            len(group),
			WindowSeconds:    windowSeconds(r.Window),
			FirstSeen:        first,
			LastSeen:         last,
			Severity:         "medium",
			Priority:         schema.PriorityMedium,
			Risk:             70,
			EvidenceEventIDs: evidenceIDs(group),
		}
		fillAsset(&inc, group)

		key := fmt.Sprintf("EP_BRUTE:%s:%s:%s:%d:%d", k.src, k.host, k.user, windowSeconds(r.Window), r.Threshold)
		return inc, key, true
	}
	return schema.Incident{}, "", false
}

// ---------------------------------------------------------------------
// 4) Lateral movement
// ---------------------------------------------------------------------

// LateralMovementRule correlates an authentication success on one host
// with EDR-class activity on a different host for the same user (or with
// no user attributed) inside the shared window.
//
// The rule does not require the auth success to temporally precede the EDR
// activity; both only need to fall in the window. This is a deliberate
// heuristic, not a proven causal chain.
type LateralMovementRule struct {
	Window time.Duration
}

func (r LateralMovementRule) Name() string { return "LATERAL_MOVEMENT" }

var lateralAuthSuccessTypes = map[string]bool{
	"login_success":     true,
	"ad_login_success":  true,
	"iam_login_success": true,
	"iam_auth_success":  true,
	"4624":              true, // windows logon success sometimes mapped as ID
}

var lateralEDRTypes = map[string]bool{
	"process_start":             true,
	"process_create":            true,
	"4688":                      true, // windows process create sometimes mapped as ID
	"network_connection":        true,
	"suspicious_script":         true,
	"credential_dumping":        true,
	"remote_exec":               true,
	"edr_suspicious_process":    true,
	"edr_credential_dump":       true,
	"edr_lateral_tool":          true,
	"edr_remote_service_create": true,
	"edr_ransomware_behavior":   true,
	"endpoint_process_start":    true,
	"endpoint_service_create":   true,
}

var lateralEDRSources = map[string]bool{
	"edr":       true,
	"endpoint":  true,
	"endpoints": true,
	"agent":     true,
	"os":        true,
	"windows":   true,
}

var lateralHostAliases = []string{"host", "hostname", "computer", "workstation", "device", "endpoint", "src_host", "dst_host"}
var lateralUserAliases = []string{"user", "username", "account", "subject_user", "target_user"}

func (r LateralMovementRule) Evaluate(events []*schema.NormalizedEvent, now time.Time) (schema.Incident, string, bool) {
	type attributed struct {
		event *schema.NormalizedEvent
		user  string
		host  string
	}

	pickHost := func(e *schema.NormalizedEvent) string {
		if e.Host != "" {
			return e.Host
		}
		return fieldString(e, lateralHostAliases...)
	}
	pickUser := func(e *schema.NormalizedEvent) string {
		if e.User != "" {
			return e.User
		}
		return fieldString(e, lateralUserAliases...)
	}

	var authSuccess, edrActivity []attributed
	for _, e := range withinWindow(events, now, r.Window) {
		et := strings.ToLower(e.EventType)

		if lateralAuthSuccessTypes[et] {
			user, host := pickUser(e), pickHost(e)
			if user != "" && host != "" {
				authSuccess = append(authSuccess, attributed{event: e, user: user, host: host})
			}
		}

		if lateralEDRSources[strings.ToLower(e.SourceType)] && lateralEDRTypes[et] {
			if host := pickHost(e); host != "" {
				edrActivity = append(edrActivity, attributed{event: e, user: pickUser(e), host: host})
			}
		}
	}

	if len(authSuccess) == 0 || len(edrActivity) == 0 {
		return schema.Incident{}, "", false
	}

	for _, a := range authSuccess {
		var candidates []attributed
		for _, x := range edrActivity {
			if x.host == a.host {
				continue
			}
			// An EDR event with an attributed user must match; no user
			// attribution is allowed through.
			if x.user != "" && !strings.EqualFold(x.user, a.user) {
				continue
			}
			candidates = append(candidates, x)
		}
		if len(candidates) == 0 {
			continue
		}

		var hostList []string
		raw := make([]*schema.NormalizedEvent, 0, len(candidates))
		for _, c := range candidates {
			hostList = append(hostList, c.host)
			raw = append(raw, c.event)
		}
		dstHosts := uniqueSorted(hostList)

		first, last := timeBounds(raw)
		inc := schema.Incident{
			Type:             "LATERAL_MOVEMENT",
			Title:            fmt.Sprintf("Possible lateral movement for user %s: %s -> %s", a.user, a.host, strings.Join(dstHosts, ", ")),
			User:             a.user,
			SrcHost:          a.host,
			DstHosts:         dstHosts,
			Count:            len(candidates),
			WindowSeconds:    windowSeconds(r.Window),
			FirstSeen:        first,
			LastSeen:         last,
			Severity:         "high",
			Priority:         schema.PriorityHigh,
			Risk:             85,
			EvidenceEventIDs: evidenceIDs(raw),
		}
		fillAsset(&inc, raw)

		key := fmt.Sprintf("LATERAL:%s:%s:%s:%d",
			strings.ToLower(a.user), strings.ToLower(a.host),
			strings.ToLower(strings.Join(dstHosts, ",")), windowSeconds(r.Window))
		return inc, key, true
	}
	return schema.Incident{}, "", false
}
