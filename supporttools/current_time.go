package supporttools

import (
	"fmt"
	"time"

	"github.com/blixt/skillflow/tool"
)

type CurrentTimeParams struct {
	Timezone string `json:"timezone,omitempty" description:"IANA timezone, e.g. \"Europe/Stockholm\". Defaults to UTC."`
}

type CurrentTimeResult struct {
	Timezone string `json:"timezone"`
	Time     string `json:"time"`
	Weekday  string `json:"weekday"`
}

var now = time.Now

var CurrentTime = tool.Func(
	"Get current time",
	"Returns the current date and time. Use it for questions about business hours or deadlines.",
	"get_current_time",
	func(r tool.Runner, p CurrentTimeParams) tool.Result {
		name := p.Timezone
		if name == "" {
			name = "UTC"
		}
		loc, err := time.LoadLocation(name)
		if err != nil {
			return tool.Error("Get current time", fmt.Errorf("unknown timezone %q", name))
		}
		t := now().In(loc)
		return tool.Success(fmt.Sprintf("Current time in %s", name), CurrentTimeResult{
			Timezone: name,
			Time:     t.Format(time.RFC3339),
			Weekday:  t.Weekday().String(),
		})
	})

// Box returns the support tools for a company.
func Box(companyContext string) *tool.Toolbox {
	return tool.Box(
		SearchCompanyContext(companyContext),
		CurrentTime,
	)
}
