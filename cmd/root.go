/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

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
package cmd

import (
	"fmt"
	"os"

	perf "github.com/hodgesds/perf-utils"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dgcore",
	Short: "Discontinuous Galerkin operator core",
	Long: `
Builds nodal discontinuous Galerkin discretizations of simplicial meshes and
runs model problems on them.

dgcore wave -n 16 -N 3
dgcore dt --dim 2 -n 8`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		switch viper.GetString("profile") {
		case "":
		case "cpu":
			stopProfile = profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop
		case "mem":
			stopProfile = profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop
		default:
			fmt.Printf("unknown profile kind %q, expected cpu or mem\n", viper.GetString("profile"))
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stopProfile != nil {
			stopProfile()
		}
	},
}

var stopProfile func()

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.dgcore.yaml)")
	rootCmd.PersistentFlags().String("profile", "", "write a cpu or mem profile to the current directory")
	_ = viper.BindPFlag("profile", rootCmd.PersistentFlags().Lookup("profile"))
	rootCmd.PersistentFlags().Bool("perf", false, "count the CPU instructions of the solve, needs perf_event access")
	_ = viper.BindPFlag("perf", rootCmd.PersistentFlags().Lookup("perf"))
}

// counted runs f, printing the CPU instructions it retired when --perf is set.
func counted(f func() error) (err error) {
	if !viper.GetBool("perf") {
		return f()
	}
	var pv *perf.ProfileValue
	if pv, err = perf.CPUInstructions(f); err != nil {
		return
	}
	fmt.Printf("CPU instructions: %d, time enabled = %d ns\n", pv.Value, pv.TimeEnabled)
	return
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".dgcore")
	}
	viper.SetEnvPrefix("DGCORE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
