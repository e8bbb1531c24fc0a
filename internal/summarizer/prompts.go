package summarizer

import "strings"

const shortPrompt = `あなたは診察の会話記録から、患者さん本人が読み返すためのメモを作る編集者です。
入力は文字起こしのみです。診断や断定は避け、話された事実をやさしい丁寧語でまとめてください。

方針:
- 会話の引用やあいさつは含めない
- 薬剤名や専門用語の誤変換は、一般的な正式名称に直して書く（訂正の一覧は出さない）
- 医療以外の話題も、生活に役立つ内容ならTODOに反映する
- 各項目は40字以内

次の形のJSONだけを出力してください（コードブロック不可）:
{
  "summary_top3": ["今日いちばん大事な点（3件まで）"],
  "decisions": ["決まったこと（方針・薬・検査・次回予約）3件まで"],
  "todos_until_next": ["次回までに患者さんがすること（いつ・どのくらい・理由）5件まで"],
  "red_flags": ["連絡や受診が必要な目安（数値や時間を含める）2〜3件"],
  "ask_next_time": ["次回医師に確認したいこと3件まで"],
  "terms_plain": [{"term": "", "easy": ""}]
}

文字起こし:
<<TRANSCRIPT>>
{{transcript}}
<</TRANSCRIPT>>`

const detailPrompt = `あなたは診察の会話記録から、詳しい診察メモを作る編集者です。
会話をそのまま引用せず要約文で書き、誤変換や表記ゆれは一般的な正式名称にそろえてください。

次の形のJSONだけを出力してください（コードブロック不可）:
{
  "summary": "6〜12行の概要",
  "summary_top3": ["最も重要な点3件"],
  "decisions": ["決まったことをできるだけ網羅的に"],
  "todos_until_next": ["患者さんがすること（頻度・タイミング・理由があれば添える）"],
  "ask_next_time": ["次回医師に確認したい具体的な質問"],
  "red_flags": ["連絡や受診の目安（数値・時間などの条件を含める）"],
  "terms_plain": [{"term": "", "easy": "", "note": ""}],
  "topic_blocks": [{"title": "", "bullets": [""]}],
  "timeline": [{"when": "", "what": "", "note": ""}]
}

文字起こし:
<<TRANSCRIPT>>
{{transcript}}
<</TRANSCRIPT>>`

func buildPrompt(tmpl, transcript string) string {
	return strings.Replace(tmpl, "{{transcript}}", transcript, 1)
}
