package cmd

import (
	"context"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/chenyuetian/galyleo/internal/launcher"
	"github.com/chenyuetian/galyleo/internal/session"
)

var (
	launchProfile string
	launchDryRun  bool
	launchNV      bool
	launchROCm    bool

	// launchValues maps option keys to their flag storage; keys double
	// as flag names so profile entries and flags merge by name.
	launchValues = map[string]*string{}
)

var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Launch a Jupyter session as a batch job",
	Long: `Launch a Jupyter server on a compute node and print the HTTPS URL
that reaches it through the reverse proxy.

Flags override values loaded from --profile. The command returns as soon
as the job is submitted; the session becomes reachable once the job
starts.

Example:
  galyleo launch --account abc123 --partition gpu-shared --gpus 1
  galyleo launch --profile ~/tensorflow.yaml --time-limit 02:00:00`,
	RunE: runLaunch,
}

func init() {
	rootCmd.AddCommand(launchCmd)

	f := launchCmd.Flags()
	stringOpt := func(name, usage string) {
		v := new(string)
		f.StringVar(v, name, "", usage)
		launchValues[name] = v
	}

	stringOpt(session.OptAccount, "Allocation account to charge (required)")
	stringOpt(session.OptReservation, "Scheduler reservation to run under")
	stringOpt(session.OptPartition, "Scheduler partition")
	stringOpt(session.OptQOS, "Quality of service")
	stringOpt(session.OptNodes, "Number of nodes")
	stringOpt(session.OptTasksPerNode, "Tasks per node")
	stringOpt(session.OptCPUsPerTask, "CPU cores per task")
	stringOpt(session.OptMemoryPerNode, "Memory per node in GB (wins over --memory-per-cpu)")
	stringOpt(session.OptMemoryPerCPU, "Memory per CPU core in GB")
	stringOpt(session.OptGPUs, "GPUs per node (mutually exclusive with --gres)")
	stringOpt(session.OptGRES, "Raw generic resource request")
	stringOpt(session.OptTimeLimit, "Walltime limit, HH:MM:SS")
	stringOpt(session.OptConstraint, "Node feature constraint")
	stringOpt(session.OptInterface, "Jupyter interface: lab or notebook")
	stringOpt(session.OptNotebookDir, "Directory to serve (default $HOME)")
	stringOpt(session.OptImage, "Singularity image to run the server in")
	stringOpt(session.OptBind, "Comma-separated container bind paths")
	stringOpt(session.OptModules, "Comma-separated environment modules to load")
	stringOpt(session.OptCondaEnv, "Conda environment to activate")

	f.BoolVar(&launchNV, session.OptNV, false, "Enable NVIDIA GPU support in the container")
	f.BoolVar(&launchROCm, session.OptROCm, false, "Enable AMD GPU support in the container")

	f.StringVar(&launchProfile, "profile", "", "YAML launch profile to load options from")
	f.BoolVar(&launchDryRun, "dry-run", false, "Generate the batch script without acquiring a token or submitting")
}

func runLaunch(cmd *cobra.Command, args []string) error {
	opts := session.Options{}
	if launchProfile != "" {
		loaded, err := session.LoadProfile(launchProfile)
		if err != nil {
			return err
		}
		opts = loaded
	}

	for name, value := range launchValues {
		if cmd.Flags().Changed(name) {
			opts[name] = *value
		}
	}
	if cmd.Flags().Changed(session.OptNV) {
		opts[session.OptNV] = strconv.FormatBool(launchNV)
	}
	if cmd.Flags().Changed(session.OptROCm) {
		opts[session.OptROCm] = strconv.FormatBool(launchROCm)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	_, err := launcher.New(cfg, uiInstance, logger).Launch(ctx, opts, launchDryRun)
	return err
}
