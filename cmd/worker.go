package cmd

import (
	"lever/worker"
	"lever/worker/accrual"
	"lever/worker/sentinel"

	"github.com/drone/signal"
	"github.com/fox-one/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "lever job worker",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		log := logger.FromContext(ctx)
		ctx = logger.WithContext(ctx, log)

		database := provideDatabase()
		defer database.Close()

		reserveStore := provideReserveStore(database)
		obligationStore := provideObligationStore(database)

		priceSource := providePriceSource()
		gateway := provideOracleGateway()
		reserveService := provideReserveService()
		obligationService := provideObligationService(gateway, reserveService)

		jobs := []worker.IJob{
			accrual.New(provideConfig(), database, reserveStore, reserveService),
			sentinel.New(provideConfig(), database, reserveStore, obligationStore, obligationService, priceSource),
		}

		for _, job := range jobs {
			if err := job.Start(); err != nil {
				log.Errorln(err)
				return
			}
		}

		done := make(chan struct{}, 1)
		signal.WithContextFunc(ctx, func() {
			for _, job := range jobs {
				job.Stop()
			}

			close(done)
		})

		log.Infoln("workers started")
		<-done
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
