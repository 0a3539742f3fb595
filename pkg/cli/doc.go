/*
Package cli provides helpers shared by the cachescript commands.

Output formatting:

Commands accept --output text|json|table. Stage reports and blob
listings render as tables; table output is coloured with lipgloss when
the terminal supports it.

	f := cli.NewFormatter(cli.FormatTable)
	if err := f.FormatTo(os.Stdout, session.Report()); err != nil {
		return err
	}

Progress:

	go cli.TrackSession(session, cli.NewProgressReporter(os.Stderr), 100*time.Millisecond)

Signals:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

Errors returned from commands are mapped to exit codes by ExitCode:
configuration and manifest errors exit with 2, everything else with 1.
*/
package cli
