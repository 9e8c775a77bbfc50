package report

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

var (
	heavyRule = strings.Repeat("=", 55)
	lightRule = strings.Repeat("-", 53)
)

// WriteText renders the plain-text analysis report
func WriteText(w io.Writer, s Summary, generated time.Time) error {
	bw := bufio.NewWriter(w)
	p := func(format string, args ...interface{}) {
		fmt.Fprintf(bw, format+"\n", args...)
	}
	section := func(title string) {
		p("")
		p("%s", lightRule)
		p("%s", title)
		p("%s", lightRule)
	}

	st := s.Statistics

	p("%s", heavyRule)
	p("   TRAFFIC DENSITY ANALYSIS REPORT")
	p("   Vehicle Density-Based Signal Switching System")
	p("%s", heavyRule)
	p("")
	p("Generated: %s", generated.Format(time.RFC1123))
	p("Session: %s (tick %d/%d)", s.SessionID, s.Tick, s.TotalTicks)

	section("EXECUTIVE SUMMARY")
	p("Total Vehicles Processed: %d", st.TotalVehicles)
	p("Average Traffic Density: %d%%", roundInt(st.AvgDensity))
	p("Peak Density Recorded: %d%%", roundInt(st.PeakDensity))
	p("Signal Switch Cycles: %d", st.CycleSwitches)
	p("Emergency Overrides: %d", st.EmergencyOverrides)
	p("")
	p("System Efficiency Score: %d%%", s.EfficiencyScore)

	section("LANE-WISE ANALYSIS")
	for _, l := range s.Lanes {
		p("")
		p("%s:", l.Name)
		p("  Average Density: %d%%", roundInt(l.AvgDensity))
		p("  Current Density: %d%%", roundInt(l.CurrentDensity))
		p("  Estimated Vehicles: ~%d", l.EstimatedVehicles)
		p("  Emergency Detected: %s", yesNo(l.Emergency, "YES", "NO"))
	}

	section("PERFORMANCE METRICS")
	p("Average Wait Time: %d seconds", s.AvgWaitSeconds)
	p("Traffic Flow Rate: %d vehicles/cycle", s.FlowRate)
	p("Emergency Response Rate: %s", s.EmergencyResponse)

	section("RECOMMENDATIONS")
	for _, r := range s.Recommendations {
		p("* %s", r)
	}

	section("CONCLUSION")
	p("The density-based signal switching system successfully")
	p("optimized traffic flow with %d%% efficiency.", s.EfficiencyScore)
	if st.EmergencyOverrides > 0 {
		p("Emergency vehicles were prioritized %d time(s).", st.EmergencyOverrides)
	}
	p("")
	p("System Status: %s", yesNo(s.Complete, "ANALYSIS COMPLETE", "IN PROGRESS"))
	p("")
	p("%s", heavyRule)
	p("End of Report")
	p("%s", heavyRule)

	return bw.Flush()
}

// WriteCSV renders the per-lane table followed by the statistics block
func WriteCSV(w io.Writer, s Summary) error {
	cw := csv.NewWriter(w)
	st := s.Statistics

	records := [][]string{
		{"Lane", "Average Density (%)", "Current Density (%)", "Estimated Vehicles", "Emergency Detected"},
	}
	for _, l := range s.Lanes {
		records = append(records, []string{
			l.Name,
			strconv.Itoa(roundInt(l.AvgDensity)),
			strconv.Itoa(roundInt(l.CurrentDensity)),
			strconv.Itoa(l.EstimatedVehicles),
			yesNo(l.Emergency, "Yes", "No"),
		})
	}
	records = append(records,
		[]string{""},
		[]string{"Statistics"},
		[]string{"Total Vehicles", strconv.Itoa(st.TotalVehicles)},
		[]string{"Average Density", fmt.Sprintf("%d%%", roundInt(st.AvgDensity))},
		[]string{"Peak Density", fmt.Sprintf("%d%%", roundInt(st.PeakDensity))},
		[]string{"Signal Switches", strconv.Itoa(st.CycleSwitches)},
		[]string{"Emergency Overrides", strconv.Itoa(st.EmergencyOverrides)},
		[]string{"System Efficiency", fmt.Sprintf("%d%%", s.EfficiencyScore)},
	)

	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func yesNo(v bool, yes, no string) string {
	if v {
		return yes
	}
	return no
}
