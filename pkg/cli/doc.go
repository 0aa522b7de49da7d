/*
Package cli provides command-line helpers for the quotagate command:
typed errors for configuration and command failures, and signal handling
for graceful shutdown.

Error Types:

Commands wrap failures in typed errors so the root command can render
them consistently:

	if err := config.Initialize(path); err != nil {
		return cli.NewConfigError("", err.Error())
	}
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	sigChan := cli.WaitForShutdown()
	select {
	case sig := <-sigChan:
		// begin graceful shutdown
	case err := <-errChan:
		// server failed
	}
*/
package cli
