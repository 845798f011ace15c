/*
Copyright 2025 Speedy Credit Repair Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	enrolld "github.com/speedycredit/enrolld"
	"github.com/speedycredit/enrolld/config"
	"github.com/speedycredit/enrolld/database"
	"github.com/speedycredit/enrolld/internal/notification"
)

// Enrolld represents the CLI application, encapsulating the root Cobra command.
type Enrolld struct {
	cmd *cobra.Command
}

// enrolldInstance holds the orchestrator and its configuration for the
// lifetime of a command.
type enrolldInstance struct {
	service *enrolld.Enrolld
	cnf     *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads configuration and initializes the orchestrator before any
// command runs.
func preRun(app *enrolldInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("enrolld.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		service, err := setupEnrolld(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.service = service
		app.cnf = cnf

		return nil
	}
}

// setupEnrolld connects the datasource and builds the orchestrator.
func setupEnrolld(cfg *config.Configuration) (*enrolld.Enrolld, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	service, err := enrolld.NewEnrolld(db)
	if err != nil {
		return nil, fmt.Errorf("error creating enrolld: %v", err)
	}
	return service, nil
}

// NewCLI creates the command-line interface for the enrolld application.
func NewCLI() *Enrolld {
	var configFile string
	e := &enrolldInstance{}

	var rootCmd = &cobra.Command{
		Use:   "enrolld",
		Short: "Credit monitoring enrollment orchestrator",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./enrolld.json", "Configuration file for enrolld")

	rootCmd.PersistentPreRunE = preRun(e)

	rootCmd.AddCommand(serverCommands(e))
	rootCmd.AddCommand(workerCommands(e))
	rootCmd.AddCommand(migrateCommands(e))

	return &Enrolld{cmd: rootCmd}
}

func (w Enrolld) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
