package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker はワーカーモードで起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandSeed はプラン・トレーナー・クラスの初期データを投入することを示す。
	CommandSeed Command = "seed"
	// CommandClient はオフラインファーストクライアントの操作を実行することを示す。
	CommandClient Command = "client"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "worker":
		return CommandWorker
	case "serve":
		return CommandServe
	case "migrate":
		return CommandMigrate
	case "seed":
		return CommandSeed
	case "client":
		return CommandClient
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}

// subArgs はサブコマンド名を除いた残りの引数を返す。
func subArgs(args []string) []string {
	if len(args) <= 1 {
		return nil
	}
	return args[1:]
}
