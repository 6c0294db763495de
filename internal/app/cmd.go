package app

// Command はwpfrontの起動モードを表す。
type Command string

const (
	// CommandServe はCMSのページとAPIを配信するHTTPサーバーとして起動する。
	// DATABASE_URLが未設定の場合はコメント監査ログを記録せずに動作する。
	CommandServe Command = "serve"
	// CommandWorker はコメント監査ログの保持期間を超えた行を日次で削除する。
	CommandWorker Command = "worker"
	// CommandMigrate はcomment_auditsテーブルのマイグレーションを適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は起動中のserveプロセスの /health を確認して終了する。
	// distrolessイメージにはcurlがないため、Dockerのヘルスチェックから呼ばれる。
	CommandHealthcheck Command = "healthcheck"
)

// commandSpec はサブコマンドごとの起動条件。
type commandSpec struct {
	// database はDATABASE_URLがなければ起動できないことを示す。
	database bool
	// standalone は設定の読み込みとログ初期化を行わずに実行することを示す。
	// WP_URLなどCMSの設定がないコンテナ内からも実行できる。
	standalone bool
}

var commands = map[Command]commandSpec{
	CommandServe:       {},
	CommandWorker:      {database: true},
	CommandMigrate:     {database: true},
	CommandHealthcheck: {standalone: true},
}

// ParseCommand はコマンドライン引数の先頭からサブコマンドを解析する。
// 引数が空または未知のコマンドの場合はCommandServeを返す。
// 2番目以降の引数は無視する。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	cmd := Command(args[0])
	if _, ok := commands[cmd]; !ok {
		return CommandServe
	}
	return cmd
}

// RequiresDatabase はコメント監査ログのデータベースが必須のコマンドかどうかを返す。
func (c Command) RequiresDatabase() bool {
	return commands[c].database
}

// Standalone は設定を読み込まずに実行するコマンドかどうかを返す。
func (c Command) Standalone() bool {
	return commands[c].standalone
}
