package ui

import (
	"github.com/pterm/pterm"
)

func Printf(format string, a ...interface{}) {
	pterm.Printf(format, a...)
}

func Printfln(format string, a ...interface{}) {
	pterm.Printfln(format, a...)
}

// SetDebugEnabled toggles Debug output, driven by --verbose.
func SetDebugEnabled(on bool) {
	pterm.PrintDebugMessages = on
}

// SetColorEnabled toggles styling, driven by --no-color.
func SetColorEnabled(on bool) {
	if on {
		pterm.EnableStyling()
		return
	}
	pterm.DisableStyling()
}

func Debug(format string, a ...interface{}) {
	pterm.Debug.Printfln(format, a...)
}

func Info(format string, a ...interface{}) {
	pterm.Info.Printfln(format, a...)
}

func Success(format string, a ...interface{}) {
	pterm.Success.Printfln(format, a...)
}

func Warning(format string, a ...interface{}) {
	pterm.Warning.Printfln(format, a...)
}

func Error(format string, a ...interface{}) {
	pterm.Error.Printfln(format, a...)
}

func Fatal(format string, a ...interface{}) {
	pterm.Fatal.Printfln(format, a...)
}

// Table renders rows with the first row as header.
func Table(rows [][]string) error {
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
